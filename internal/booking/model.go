package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Blocking reports whether an appointment in this status keeps its slot
// occupied. Cancelled and completed appointments free the slot for reuse.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal statuses never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "CASH"
	MethodWallet PaymentMethod = "WALLET"
	MethodVNPay  PaymentMethod = "VNPAY"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodWallet || m == MethodVNPay
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type DoctorStatus string

const (
	DoctorActive   DoctorStatus = "ACTIVE"
	DoctorInactive DoctorStatus = "INACTIVE"
)

type Doctor struct {
	ID              uuid.UUID
	FullName        string
	Specialty       *string
	Status          DoctorStatus
	ConsultationFee decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Patient struct {
	ID        uuid.UUID
	FullName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment reserves one (doctor, date, time) slot. Price is fixed from
// the doctor's consultation fee at creation and never changes afterwards.
type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Date          time.Time // date only, time-of-day is TimeSlot
	TimeSlot      string    // HH:MM, fixed 30-minute grid
	Status        Status
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Price         decimal.Decimal
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
