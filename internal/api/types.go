package api

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/doctor-booking/internal/booking"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

type CreateAppointmentRequest struct {
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:MM
	Notes         string `json:"notes"`
	PaymentMethod string `json:"payment_method"` // CASH, WALLET, VNPAY
}

type ConfirmAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
}

type CancelAppointmentRequest struct {
	PatientID string `json:"patient_id"`
}

type AppointmentResponse struct {
	ID            uuid.UUID       `json:"id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	DoctorID      uuid.UUID       `json:"doctor_id"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Price         decimal.Decimal `json:"price"`
	Notes         string          `json:"notes,omitempty"`
	PaymentURL    string          `json:"payment_url,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment, paymentURL string) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		Date:          a.Date.Format("2006-01-02"),
		Time:          a.TimeSlot,
		Status:        string(a.Status),
		PaymentMethod: string(a.PaymentMethod),
		PaymentStatus: string(a.PaymentStatus),
		Price:         a.Price,
		Notes:         a.Notes,
		PaymentURL:    paymentURL,
	}
}

type SlotsResponse struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	Available []string  `json:"available"`
}

type WalletResponse struct {
	PatientID     uuid.UUID       `json:"patient_id"`
	Balance       decimal.Decimal `json:"balance"`
	LoyaltyPoints int             `json:"loyalty_points"`
	LoyaltyTier   string          `json:"loyalty_tier"`
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
	ReferenceID   string          `json:"reference_id"`
	PointsEarned  int             `json:"points_earned"`
	CreatedAt     string          `json:"created_at"`
}

func toTransactionResponse(t *wallet.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Status:        string(t.Status),
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		ReferenceID:   t.ReferenceID,
		PointsEarned:  t.PointsEarned,
		CreatedAt:     t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type DepositResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	PaymentURL  string              `json:"payment_url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
