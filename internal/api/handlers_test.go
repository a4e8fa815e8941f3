package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hackgods/doctor-booking/internal/booking"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

func TestHandleBookingErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{booking.ErrPatientNotFound, http.StatusNotFound},
		{booking.ErrDoctorNotFound, http.StatusNotFound},
		{booking.ErrAppointmentNotFound, http.StatusNotFound},
		{booking.ErrSlotUnavailable, http.StatusConflict},
		{booking.ErrSlotBeingBooked, http.StatusConflict},
		{booking.ErrInvalidStatusTransition, http.StatusConflict},
		{booking.ErrDoctorInactive, http.StatusConflict},
		{booking.ErrPastDate, http.StatusBadRequest},
		{booking.ErrInvalidSlot, http.StatusBadRequest},
		{booking.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{booking.ErrSignatureInvalid, http.StatusBadRequest},
		{booking.ErrDoctorMismatch, http.StatusForbidden},
		{booking.ErrPatientMismatch, http.StatusForbidden},
		{wallet.ErrInsufficientFunds, http.StatusPaymentRequired},
		{errors.New("database is on fire"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		handleBookingError(rec, c.err)
		assert.Equal(t, c.want, rec.Code, "error=%v", c.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestHandleBookingErrorWrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	handleBookingError(rec, errors.Join(errors.New("refund appointment"), wallet.ErrInsufficientFunds))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestHandleWalletErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{wallet.ErrPatientNotFound, http.StatusNotFound},
		{wallet.ErrTransactionNotFound, http.StatusNotFound},
		{wallet.ErrInvalidAmount, http.StatusBadRequest},
		{wallet.ErrInsufficientFunds, http.StatusPaymentRequired},
		{wallet.ErrInvalidTransactionState, http.StatusConflict},
		{wallet.ErrDuplicateReference, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		handleWalletError(rec, c.err)
		assert.Equal(t, c.want, rec.Code, "error=%v", c.err)
	}
}

func TestPagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/appointments?limit=5&offset=10", nil)
	limit, offset := pagination(r)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10, offset)

	r = httptest.NewRequest(http.MethodGet, "/appointments", nil)
	limit, offset = pagination(r)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	r = httptest.NewRequest(http.MethodGet, "/appointments?limit=abc&offset=-",  nil)
	limit, offset = pagination(r)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)
}
