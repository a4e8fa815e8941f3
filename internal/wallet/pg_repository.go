package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/doctor-booking/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
	q    db.Querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

func (r *PgRepository) WithTx(tx pgx.Tx) Repository {
	return &PgRepository{pool: r.pool, q: tx}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(tx pgx.Tx, repo Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx, r.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Helpers

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.PatientID,
		&t.Type,
		&t.Amount,
		&t.Status,
		&t.PaymentMethod,
		&t.Description,
		&t.ReferenceID,
		&t.PointsEarned,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanWallet(row pgx.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(
		&w.PatientID,
		&w.Balance,
		&w.LoyaltyPoints,
		&w.LoyaltyTier,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &w, nil
}

const transactionColumns = `
	id, patient_id, type, amount, status, payment_method,
	description, reference_id, points_earned, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, wallet_balance, loyalty_points, loyalty_tier
		FROM patients
		WHERE id = $1
	`, patientID)
	return scanWallet(row)
}

func (r *PgRepository) GetWalletForUpdate(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, wallet_balance, loyalty_points, loyalty_tier
		FROM patients
		WHERE id = $1
		FOR UPDATE
	`, patientID)
	return scanWallet(row)
}

func (r *PgRepository) ApplyWallet(ctx context.Context, w *Wallet) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE patients
		SET wallet_balance = $2,
		    loyalty_points = $3,
		    loyalty_tier = $4,
		    updated_at = now()
		WHERE id = $1
	`, w.PatientID, w.Balance, w.LoyaltyPoints, w.LoyaltyTier)
	if err != nil {
		return fmt.Errorf("apply wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) InsertTransaction(ctx context.Context, t *Transaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO wallet_transactions (
			id, patient_id, type, amount, status, payment_method,
			description, reference_id, points_earned, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, t.ID, t.PatientID, t.Type, t.Amount, t.Status, t.PaymentMethod,
		t.Description, t.ReferenceID, t.PointsEarned)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

func (r *PgRepository) GetTransactionByReference(ctx context.Context, referenceID string) (*Transaction, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE reference_id = $1
	`, referenceID)
	return scanTransaction(row)
}

func (r *PgRepository) GetTransactionByReferenceForUpdate(ctx context.Context, referenceID string) (*Transaction, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE reference_id = $1
		FOR UPDATE
	`, referenceID)
	return scanTransaction(row)
}

func (r *PgRepository) CompleteTransaction(ctx context.Context, id uuid.UUID, newReference string, pointsEarned int) (*Transaction, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE wallet_transactions
		SET status = 'COMPLETED',
		    reference_id = $2,
		    points_earned = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+transactionColumns+`
	`, id, newReference, pointsEarned)
	return scanTransaction(row)
}

func (r *PgRepository) FailTransaction(ctx context.Context, id uuid.UUID, reason string) (*Transaction, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE wallet_transactions
		SET status = 'FAILED',
		    description = description || ' - ' || $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+transactionColumns+`
	`, id, reason)
	return scanTransaction(row)
}

func (r *PgRepository) ListTransactions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
