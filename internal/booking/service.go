package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/doctor-booking/internal/notify"
	redisclient "github.com/hackgods/doctor-booking/internal/redis"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

const dateFormat = "2006-01-02"

var (
	ErrSlotUnavailable         = errors.New("slot already has a blocking appointment")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidSlot             = errors.New("time is not on the booking grid")
	ErrPastDate                = errors.New("cannot book an appointment in the past")
	ErrDoctorInactive          = errors.New("doctor is not active")
	ErrInvalidPaymentMethod    = errors.New("unknown payment method")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrDoctorMismatch          = errors.New("appointment does not belong to this doctor")
	ErrPatientMismatch         = errors.New("appointment does not belong to this patient")
	ErrSignatureInvalid        = errors.New("gateway callback signature is invalid")
)

// WalletLedger is the slice of the wallet service the orchestrator needs.
// Both methods join the caller's transaction so a debit or refund commits
// together with the appointment-state change it pays for.
type WalletLedger interface {
	PayInTx(ctx context.Context, tx pgx.Tx, patientID uuid.UUID, amount decimal.Decimal, referenceID, description string) (*wallet.Transaction, error)
	RefundInTx(ctx context.Context, tx pgx.Tx, patientID uuid.UUID, amount decimal.Decimal, referenceID, description string) (*wallet.Transaction, error)
}

// PaymentGateway builds signed redirect URLs and checks callbacks.
type PaymentGateway interface {
	PaymentURL(amount decimal.Decimal, orderInfo, txnRef string) (string, error)
	VerifyReturn(params url.Values) bool
	IsSuccess(params url.Values) bool
	ResponseCode(params url.Values) string
}

type Service struct {
	repo          Repository
	ledger        WalletLedger
	gateway       PaymentGateway
	locker        redisclient.Locker
	notifier      notify.Sender
	grid          SlotGrid
	gatewayExpiry time.Duration
	log           *zap.Logger
	now           func() time.Time
}

func NewService(
	repo Repository,
	ledger WalletLedger,
	gateway PaymentGateway,
	locker redisclient.Locker,
	notifier notify.Sender,
	grid SlotGrid,
	gatewayExpiry time.Duration,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:          repo,
		ledger:        ledger,
		gateway:       gateway,
		locker:        locker,
		notifier:      notifier,
		grid:          grid,
		gatewayExpiry: gatewayExpiry,
		log:           log,
		now:           time.Now,
	}
}

type CreateParams struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Date          time.Time
	TimeSlot      string
	Notes         string
	PaymentMethod PaymentMethod
}

type BookingResult struct {
	Appointment *Appointment
	// PaymentURL is set for gateway bookings with a positive price; the
	// client redirects the patient there to settle.
	PaymentURL string
}

// Create reserves a slot and kicks off payment for it. The reusable-row
// cleanup, the insert and a wallet debit all run in one transaction under a
// per-slot Redis lock; the partial unique index on the appointments table is
// the authoritative guard against a concurrent duplicate.
func (s *Service) Create(ctx context.Context, p CreateParams) (*BookingResult, error) {
	if !p.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if !s.grid.Contains(p.TimeSlot) {
		return nil, ErrInvalidSlot
	}
	if p.Date.Format(dateFormat) < s.now().Format(dateFormat) {
		return nil, ErrPastDate
	}

	var (
		created *Appointment
		doctor  *Doctor
		patient *Patient
	)

	lockKey := redisclient.SlotKey(p.DoctorID, p.Date.Format(dateFormat), p.TimeSlot)

	err := s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(tx pgx.Tx, r Repository) error {
			var err error

			doctor, err = r.GetDoctorByID(lockCtx, p.DoctorID)
			if err != nil {
				return err
			}
			if doctor.Status != DoctorActive {
				return ErrDoctorInactive
			}

			patient, err = r.GetPatientByID(lockCtx, p.PatientID)
			if err != nil {
				return err
			}

			existing, err := r.ListByDoctorAndDate(lockCtx, p.DoctorID, p.Date)
			if err != nil {
				return fmt.Errorf("load day appointments: %w", err)
			}

			for _, old := range existing {
				if old.TimeSlot != p.TimeSlot {
					continue
				}
				if old.Status.Blocking() {
					return ErrSlotUnavailable
				}
				// A terminal row still occupies the slot key; remove it so
				// the insert below does not trip the unique index.
				s.log.Info("reclaiming terminal appointment for slot reuse",
					zap.String("appointment_id", old.ID.String()),
					zap.String("status", string(old.Status)))
				if err := r.DeleteAppointment(lockCtx, old.ID); err != nil {
					return fmt.Errorf("reclaim slot: %w", err)
				}
			}

			a := &Appointment{
				ID:            uuid.New(),
				PatientID:     p.PatientID,
				DoctorID:      p.DoctorID,
				Date:          p.Date,
				TimeSlot:      p.TimeSlot,
				Status:        StatusPending,
				PaymentMethod: p.PaymentMethod,
				PaymentStatus: PaymentPending,
				Price:         doctor.ConsultationFee,
				Notes:         p.Notes,
			}

			created, err = r.CreateAppointment(lockCtx, a)
			if err != nil {
				if errors.Is(err, ErrSlotTaken) {
					return ErrSlotUnavailable
				}
				return fmt.Errorf("create appointment: %w", err)
			}

			if p.PaymentMethod == MethodWallet {
				if created.Price.IsPositive() {
					_, err = s.ledger.PayInTx(lockCtx, tx, p.PatientID, created.Price,
						paymentRef(created.ID),
						fmt.Sprintf("Consultation fee - Dr. %s", doctor.FullName))
					if err != nil {
						// Rolls back the appointment row too: no orphaned
						// PENDING booking survives a failed debit.
						return err
					}
				}
				created, err = r.SetPaymentStatus(lockCtx, created.ID, PaymentPending, PaymentPaid)
				if err != nil {
					return fmt.Errorf("mark appointment paid: %w", err)
				}
			}

			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	result := &BookingResult{Appointment: created}

	if p.PaymentMethod == MethodVNPay && created.Price.IsPositive() {
		payURL, err := s.gateway.PaymentURL(created.Price,
			fmt.Sprintf("Consultation fee - Dr. %s", doctor.FullName),
			created.ID.String())
		if err != nil {
			return nil, fmt.Errorf("build payment url: %w", err)
		}
		result.PaymentURL = payURL
	}

	s.notifyPatient(ctx, patient, "Appointment booked", map[string]string{
		"doctor": doctor.FullName,
		"date":   created.Date.Format(dateFormat),
		"time":   created.TimeSlot,
	})

	return result, nil
}

// Confirm moves a pending appointment to confirmed; only the owning doctor
// may confirm.
func (s *Service) Confirm(ctx context.Context, id, doctorID uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doctorID {
		return nil, ErrDoctorMismatch
	}
	if a.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}
	return updated, nil
}

// Complete marks a confirmed appointment completed. Called when the
// treatment record for the visit is filed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.repo.UpdateStatus(ctx, id, StatusConfirmed, StatusCompleted)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	// Distinguish a missing row from a wrong-state one.
	if _, getErr := s.repo.GetAppointmentByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidStatusTransition
}

// Cancel cancels the patient's appointment. A wallet-paid booking is
// refunded in the same transaction that flips the statuses; if the refund
// fails nothing changes.
func (s *Service) Cancel(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	var (
		cancelled *Appointment
		patient   *Patient
		doctor    *Doctor
	)

	err := s.repo.InTx(ctx, func(tx pgx.Tx, r Repository) error {
		a, err := r.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.PatientID != patientID {
			return ErrPatientMismatch
		}
		if a.Status.Terminal() {
			return ErrInvalidStatusTransition
		}

		patient, err = r.GetPatientByID(ctx, patientID)
		if err != nil {
			return err
		}
		doctor, err = r.GetDoctorByID(ctx, a.DoctorID)
		if err != nil {
			return err
		}

		payment := a.PaymentStatus
		if a.PaymentMethod == MethodWallet && a.PaymentStatus == PaymentPaid && a.Price.IsPositive() {
			_, err = s.ledger.RefundInTx(ctx, tx, patientID, a.Price,
				refundRef(a.ID),
				fmt.Sprintf("Refund for cancelled appointment - Dr. %s (%s %s)",
					doctor.FullName, a.Date.Format(dateFormat), a.TimeSlot))
			if err != nil {
				return fmt.Errorf("refund appointment: %w", err)
			}
			payment = PaymentRefunded
		}

		cancelled, err = r.CancelAppointment(ctx, id, payment)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidStatusTransition
			}
			return fmt.Errorf("cancel appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment cancelled",
		zap.String("appointment_id", id.String()),
		zap.String("payment_status", string(cancelled.PaymentStatus)))

	s.notifyPatient(ctx, patient, "Appointment cancelled", map[string]string{
		"doctor": doctor.FullName,
		"date":   cancelled.Date.Format(dateFormat),
		"time":   cancelled.TimeSlot,
	})

	return cancelled, nil
}

// HandleGatewayReturn settles a gateway payment callback. Re-delivery of
// the same callback is a no-op once the payment state has been applied.
func (s *Service) HandleGatewayReturn(ctx context.Context, params url.Values) (*Appointment, error) {
	if !s.gateway.VerifyReturn(params) {
		return nil, ErrSignatureInvalid
	}

	id, err := uuid.Parse(params.Get("vnp_TxnRef"))
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	if s.gateway.IsSuccess(params) {
		updated, err := s.repo.SetPaymentStatus(ctx, id, PaymentPending, PaymentPaid)
		if err == nil {
			s.log.Info("gateway payment settled", zap.String("appointment_id", id.String()))
			return updated, nil
		}
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("settle gateway payment: %w", err)
		}

		// Conditional update matched nothing: either the id is unknown or
		// the callback was already applied.
		a, getErr := s.repo.GetAppointmentByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if a.PaymentStatus == PaymentPaid {
			return a, nil
		}
		return nil, ErrInvalidStatusTransition
	}

	cancelled, err := s.repo.CancelPendingUnpaid(ctx, id)
	if err == nil {
		s.log.Info("gateway payment rejected, appointment cancelled",
			zap.String("appointment_id", id.String()),
			zap.String("response_code", s.gateway.ResponseCode(params)))
		return cancelled, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("cancel unpaid appointment: %w", err)
	}

	a, getErr := s.repo.GetAppointmentByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if a.Status == StatusCancelled {
		return a, nil
	}
	return nil, ErrInvalidStatusTransition
}

// AvailableSlots derives the free slots for a doctor on a date.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	appointments, err := s.repo.ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load day appointments: %w", err)
	}

	return s.grid.Available(appointments), nil
}

// Get retrieves an appointment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListByPatient retrieves appointments for a specific patient
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ExpireAbandonedPayments cancels gateway bookings whose redirect window
// lapsed without a callback. Intended to be called by the worker
// periodically.
func (s *Service) ExpireAbandonedPayments(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.gatewayExpiry)

	candidates, err := s.repo.FindExpiredGatewayPending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find expired gateway bookings: %w", err)
	}

	expired := 0
	for _, a := range candidates {
		if _, err := s.repo.CancelPendingUnpaid(ctx, a.ID); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue // raced with a callback or a cancellation
			}
			s.log.Error("failed to expire gateway booking",
				zap.String("appointment_id", a.ID.String()), zap.Error(err))
			continue
		}
		expired++
		s.log.Info("expired abandoned gateway booking",
			zap.String("appointment_id", a.ID.String()))
	}

	return expired, nil
}

func (s *Service) notifyPatient(ctx context.Context, p *Patient, subject string, data map[string]string) {
	if p == nil || p.Email == nil {
		return
	}
	if err := s.notifier.Send(ctx, *p.Email, subject, data); err != nil {
		s.log.Warn("notification failed",
			zap.String("patient_id", p.ID.String()),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

func paymentRef(appointmentID uuid.UUID) string {
	return "appt-pay-" + appointmentID.String()
}

func refundRef(appointmentID uuid.UUID) string {
	return "appt-refund-" + appointmentID.String()
}
