package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrTransactionNotFound = errors.New("wallet transaction not found")
	ErrDuplicateReference  = errors.New("reference id already used")
)

// Repository contains all DB interactions needed by the ledger.
type Repository interface {
	// WithTx returns a repository bound to the caller's transaction, so
	// ledger writes can share an atomic unit of work with a booking.
	WithTx(tx pgx.Tx) Repository
	InTx(ctx context.Context, fn func(tx pgx.Tx, r Repository) error) error

	GetWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error)
	GetWalletForUpdate(ctx context.Context, patientID uuid.UUID) (*Wallet, error)
	ApplyWallet(ctx context.Context, w *Wallet) error

	InsertTransaction(ctx context.Context, t *Transaction) error
	GetTransactionByReference(ctx context.Context, referenceID string) (*Transaction, error)
	GetTransactionByReferenceForUpdate(ctx context.Context, referenceID string) (*Transaction, error)
	CompleteTransaction(ctx context.Context, id uuid.UUID, newReference string, pointsEarned int) (*Transaction, error)
	FailTransaction(ctx context.Context, id uuid.UUID, reason string) (*Transaction, error)

	ListTransactions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Transaction, error)
}
