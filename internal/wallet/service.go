package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientFunds       = errors.New("insufficient wallet balance")
	ErrInvalidTransactionState = errors.New("transaction is not in a state that allows this operation")
)

// Service is the wallet ledger. Balances are mutated only here, always in
// the same transaction that moves a ledger entry to COMPLETED.
type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// PayInTx debits the patient's balance as part of the caller's transaction.
// The debit and the caller's own writes commit or roll back together.
func (s *Service) PayInTx(ctx context.Context, tx pgx.Tx, patientID uuid.UUID, amount decimal.Decimal, referenceID, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	w, err := repo.GetWalletForUpdate(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	t := &Transaction{
		ID:            uuid.New(),
		PatientID:     patientID,
		Type:          TypePayment,
		Amount:        amount,
		Status:        StatusCompleted,
		PaymentMethod: "WALLET",
		Description:   description,
		ReferenceID:   referenceID,
	}
	if err := repo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	w.Balance = w.Balance.Sub(amount)
	if err := repo.ApplyWallet(ctx, w); err != nil {
		return nil, err
	}

	s.log.Info("wallet payment recorded",
		zap.String("patient_id", patientID.String()),
		zap.String("reference_id", referenceID),
		zap.String("amount", amount.String()))

	return t, nil
}

// RefundInTx credits the patient's balance back as part of the caller's
// transaction. A refund is a new ledger entry, never an edit.
func (s *Service) RefundInTx(ctx context.Context, tx pgx.Tx, patientID uuid.UUID, amount decimal.Decimal, referenceID, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	w, err := repo.GetWalletForUpdate(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	t := &Transaction{
		ID:            uuid.New(),
		PatientID:     patientID,
		Type:          TypeRefund,
		Amount:        amount,
		Status:        StatusCompleted,
		PaymentMethod: "WALLET",
		Description:   description,
		ReferenceID:   referenceID,
	}
	if err := repo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	w.Balance = w.Balance.Add(amount)
	if err := repo.ApplyWallet(ctx, w); err != nil {
		return nil, err
	}

	s.log.Info("wallet refund recorded",
		zap.String("patient_id", patientID.String()),
		zap.String("reference_id", referenceID),
		zap.String("amount", amount.String()))

	return t, nil
}

// InitiateDeposit creates a PENDING deposit with a fresh idempotency key.
// The caller drives the external payment redirect with the returned
// transaction's reference id.
func (s *Service) InitiateDeposit(ctx context.Context, patientID uuid.UUID, amount decimal.Decimal, method string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if _, err := s.repo.GetWallet(ctx, patientID); err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:            uuid.New(),
		PatientID:     patientID,
		Type:          TypeDeposit,
		Amount:        amount,
		Status:        StatusPending,
		PaymentMethod: method,
		Description:   "Wallet top-up via " + method,
		ReferenceID:   uuid.NewString(),
	}
	if err := s.repo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// CompleteDeposit settles a pending deposit: it increments the balance,
// awards loyalty points and stores the gateway transaction id as the new
// reference. Calling it twice with the same reference applies the balance
// increment exactly once.
func (s *Service) CompleteDeposit(ctx context.Context, referenceID, gatewayTxnID string) (*Transaction, error) {
	var result *Transaction

	err := s.repo.InTx(ctx, func(tx pgx.Tx, repo Repository) error {
		t, err := repo.GetTransactionByReferenceForUpdate(ctx, referenceID)
		if err != nil {
			return err
		}

		if t.Status == StatusCompleted {
			s.log.Warn("deposit already completed", zap.String("reference_id", referenceID))
			result = t
			return nil
		}
		if t.Type != TypeDeposit || t.Status != StatusPending {
			return ErrInvalidTransactionState
		}

		w, err := repo.GetWalletForUpdate(ctx, t.PatientID)
		if err != nil {
			return fmt.Errorf("load wallet: %w", err)
		}

		earned := PointsFor(t.Amount)
		w.Balance = w.Balance.Add(t.Amount)
		w.LoyaltyPoints += earned
		w.LoyaltyTier = TierFor(w.LoyaltyPoints)

		if err := repo.ApplyWallet(ctx, w); err != nil {
			return err
		}

		completed, err := repo.CompleteTransaction(ctx, t.ID, gatewayTxnID, earned)
		if err != nil {
			return err
		}
		result = completed

		s.log.Info("deposit completed",
			zap.String("patient_id", t.PatientID.String()),
			zap.String("amount", t.Amount.String()),
			zap.Int("points_earned", earned),
			zap.String("tier", w.LoyaltyTier))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FailDeposit marks a pending deposit FAILED. The balance is untouched.
func (s *Service) FailDeposit(ctx context.Context, referenceID, reason string) (*Transaction, error) {
	var result *Transaction

	err := s.repo.InTx(ctx, func(tx pgx.Tx, repo Repository) error {
		t, err := repo.GetTransactionByReferenceForUpdate(ctx, referenceID)
		if err != nil {
			return err
		}

		if t.Status == StatusFailed {
			result = t
			return nil
		}
		if t.Status != StatusPending {
			return ErrInvalidTransactionState
		}

		failed, err := repo.FailTransaction(ctx, t.ID, reason)
		if err != nil {
			return err
		}
		result = failed

		s.log.Info("deposit failed",
			zap.String("reference_id", referenceID),
			zap.String("reason", reason))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) Wallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	return s.repo.GetWallet(ctx, patientID)
}

func (s *Service) Transactions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, patientID, limit, offset)
}
