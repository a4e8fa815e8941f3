package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the storage-layer guard firing: the partial unique
	// index on (doctor, date, time) rejected a concurrent duplicate.
	ErrSlotTaken = errors.New("slot already holds a blocking appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InTx runs fn inside one transaction; the bound repository and the
	// raw tx are both passed so the wallet ledger can join the same unit
	// of work.
	InTx(ctx context.Context, fn func(tx pgx.Tx, r Repository) error) error

	// Directory reads
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) (*Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, payment PaymentStatus) (*Appointment, error)
	CancelPendingUnpaid(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Payment-expiry worker
	FindExpiredGatewayPending(ctx context.Context, cutoff time.Time) ([]Appointment, error)
}
