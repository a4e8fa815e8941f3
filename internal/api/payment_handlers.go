package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/doctor-booking/internal/booking"
	"github.com/hackgods/doctor-booking/internal/vnpay"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

// vnpayReturnHandler settles an appointment payment callback. VNPay
// redirects the patient's browser here after the hosted payment page.
func vnpayReturnHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.HandleGatewayReturn(r.Context(), r.URL.Query())
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(a, ""))
	}
}

// vnpayDepositReturnHandler settles a wallet top-up callback.
func vnpayDepositReturnHandler(svc *wallet.Service, gateway *vnpay.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		if !gateway.VerifyReturn(params) {
			writeError(w, http.StatusBadRequest, "invalid_signature", "gateway callback signature is invalid")
			return
		}

		referenceID := params.Get("vnp_TxnRef")
		if referenceID == "" {
			writeError(w, http.StatusBadRequest, "invalid_reference", "vnp_TxnRef is missing")
			return
		}

		if !gateway.IsSuccess(params) {
			t, err := svc.FailDeposit(r.Context(), referenceID,
				"VNPay response code "+gateway.ResponseCode(params))
			if err != nil {
				handleWalletError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toTransactionResponse(t))
			return
		}

		t, err := svc.CompleteDeposit(r.Context(), referenceID, params.Get("vnp_TransactionNo"))
		if err != nil {
			handleWalletError(w, err)
			return
		}

		if callbackAmount, amtErr := vnpay.CallbackAmount(params); amtErr == nil && !callbackAmount.Equal(t.Amount) {
			log.Warn("vnpay callback amount differs from ledger entry",
				zap.String("reference_id", referenceID),
				zap.String("callback_amount", callbackAmount.String()),
				zap.String("ledger_amount", t.Amount.String()))
		}

		writeJSON(w, http.StatusOK, toTransactionResponse(t))
	}
}
