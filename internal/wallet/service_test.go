package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	wallets map[uuid.UUID]*Wallet
	txns    map[uuid.UUID]*Transaction
	byRef   map[string]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		wallets: make(map[uuid.UUID]*Wallet),
		txns:    make(map[uuid.UUID]*Transaction),
		byRef:   make(map[string]uuid.UUID),
	}
}

func (r *fakeRepo) addPatient(balance int64, points int) uuid.UUID {
	id := uuid.New()
	r.wallets[id] = &Wallet{
		PatientID:     id,
		Balance:       decimal.NewFromInt(balance),
		LoyaltyPoints: points,
		LoyaltyTier:   TierFor(points),
	}
	return id
}

func (r *fakeRepo) WithTx(tx pgx.Tx) Repository { return r }

func (r *fakeRepo) InTx(ctx context.Context, fn func(tx pgx.Tx, repo Repository) error) error {
	return fn(nil, r)
}

func (r *fakeRepo) GetWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	w, ok := r.wallets[patientID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	c := *w
	return &c, nil
}

func (r *fakeRepo) GetWalletForUpdate(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	return r.GetWallet(ctx, patientID)
}

func (r *fakeRepo) ApplyWallet(ctx context.Context, w *Wallet) error {
	if _, ok := r.wallets[w.PatientID]; !ok {
		return ErrPatientNotFound
	}
	c := *w
	r.wallets[w.PatientID] = &c
	return nil
}

func (r *fakeRepo) InsertTransaction(ctx context.Context, t *Transaction) error {
	if _, exists := r.byRef[t.ReferenceID]; exists {
		return ErrDuplicateReference
	}
	c := *t
	r.txns[t.ID] = &c
	r.byRef[t.ReferenceID] = t.ID
	return nil
}

func (r *fakeRepo) GetTransactionByReference(ctx context.Context, referenceID string) (*Transaction, error) {
	id, ok := r.byRef[referenceID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	c := *r.txns[id]
	return &c, nil
}

func (r *fakeRepo) GetTransactionByReferenceForUpdate(ctx context.Context, referenceID string) (*Transaction, error) {
	return r.GetTransactionByReference(ctx, referenceID)
}

func (r *fakeRepo) CompleteTransaction(ctx context.Context, id uuid.UUID, newReference string, pointsEarned int) (*Transaction, error) {
	t, ok := r.txns[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	delete(r.byRef, t.ReferenceID)
	t.Status = StatusCompleted
	t.ReferenceID = newReference
	t.PointsEarned = pointsEarned
	r.byRef[newReference] = id
	c := *t
	return &c, nil
}

func (r *fakeRepo) FailTransaction(ctx context.Context, id uuid.UUID, reason string) (*Transaction, error) {
	t, ok := r.txns[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	t.Status = StatusFailed
	t.Description = t.Description + " - " + reason
	c := *t
	return &c, nil
}

func (r *fakeRepo) ListTransactions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var result []Transaction
	for _, t := range r.txns {
		if t.PatientID == patientID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, zap.NewNop())
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		points int
		want   string
	}{
		{0, TierBronze},
		{999, TierBronze},
		{1000, TierSilver},
		{4999, TierSilver},
		{5000, TierGold},
		{9999, TierGold},
		{10000, TierPlatinum},
		{50000, TierPlatinum},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, TierFor(c.points), "points=%d", c.points)
	}
}

func TestPointsFor(t *testing.T) {
	cases := []struct {
		amount string
		want   int
	}{
		{"0", 0},
		{"99", 0},
		{"100", 1},
		{"250", 2},
		{"199.99", 1},
		{"100000", 1000},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, PointsFor(decimal.RequireFromString(c.amount)), "amount=%s", c.amount)
	}
}

func TestDepositLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(0, 900)

	pending, err := svc.InitiateDeposit(ctx, patientID, decimal.NewFromInt(50000), "VNPAY")
	require.NoError(t, err)
	assert.Equal(t, TypeDeposit, pending.Type)
	assert.Equal(t, StatusPending, pending.Status)
	assert.NotEmpty(t, pending.ReferenceID)

	// Nothing moves until the gateway confirms.
	w, err := svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	completed, err := svc.CompleteDeposit(ctx, pending.ReferenceID, "vnp-txn-001")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, "vnp-txn-001", completed.ReferenceID)
	assert.Equal(t, 500, completed.PointsEarned)

	w, err = svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, 1400, w.LoyaltyPoints)
	assert.Equal(t, TierSilver, w.LoyaltyTier, "900 + 500 points crosses the silver threshold")
}

func TestCompleteDepositIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(0, 0)

	pending, err := svc.InitiateDeposit(ctx, patientID, decimal.NewFromInt(20000), "VNPAY")
	require.NoError(t, err)

	first, err := svc.CompleteDeposit(ctx, pending.ReferenceID, "vnp-txn-007")
	require.NoError(t, err)

	// Re-delivered callback: same result, no double credit.
	second, err := svc.CompleteDeposit(ctx, first.ReferenceID, "vnp-txn-007")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StatusCompleted, second.Status)

	w, err := svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(20000)), "balance credited exactly once")
	assert.Equal(t, 200, w.LoyaltyPoints)
}

func TestFailDeposit(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(0, 0)

	pending, err := svc.InitiateDeposit(ctx, patientID, decimal.NewFromInt(30000), "VNPAY")
	require.NoError(t, err)

	failed, err := svc.FailDeposit(ctx, pending.ReferenceID, "VNPay response code 24")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Description, "VNPay response code 24")

	w, err := svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	// A failed entry never completes afterwards.
	_, err = svc.CompleteDeposit(ctx, pending.ReferenceID, "vnp-txn-late")
	assert.ErrorIs(t, err, ErrInvalidTransactionState)
}

func TestInitiateDepositValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(0, 0)

	_, err := svc.InitiateDeposit(ctx, patientID, decimal.Zero, "VNPAY")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.InitiateDeposit(ctx, patientID, decimal.NewFromInt(-500), "VNPAY")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.InitiateDeposit(ctx, uuid.New(), decimal.NewFromInt(500), "VNPAY")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPayInsufficientFunds(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(100, 0)

	_, err := svc.PayInTx(ctx, nil, patientID, decimal.NewFromInt(150), "ref-1", "too expensive")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	w, err := svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(100)), "balance untouched on failed debit")
}

func TestPayAndRefundRestoresBalance(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(200000, 0)
	fee := decimal.NewFromInt(150000)

	payment, err := svc.PayInTx(ctx, nil, patientID, fee, "appt-pay-1", "Consultation fee")
	require.NoError(t, err)
	assert.Equal(t, TypePayment, payment.Type)
	assert.Equal(t, StatusCompleted, payment.Status)

	w, err := svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(50000)))

	refund, err := svc.RefundInTx(ctx, nil, patientID, fee, "appt-refund-1", "Refund for cancelled appointment")
	require.NoError(t, err)
	assert.Equal(t, TypeRefund, refund.Type)

	w, err = svc.Wallet(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(200000)), "refund restores the original balance")

	// Payments do not earn points.
	assert.Equal(t, 0, w.LoyaltyPoints)
}

func TestPayDuplicateReference(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patientID := repo.addPatient(100000, 0)

	_, err := svc.PayInTx(ctx, nil, patientID, decimal.NewFromInt(1000), "ref-dup", "first")
	require.NoError(t, err)

	_, err = svc.PayInTx(ctx, nil, patientID, decimal.NewFromInt(1000), "ref-dup", "second")
	assert.ErrorIs(t, err, ErrDuplicateReference)
}
