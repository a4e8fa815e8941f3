package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeDeposit TransactionType = "DEPOSIT"
	TypePayment TransactionType = "PAYMENT"
	TypeRefund  TransactionType = "REFUND"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

const (
	TierBronze   = "BRONZE"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

// Transaction is one append-only ledger entry. The amount is always
// positive; the balance effect is implied by the type. A COMPLETED entry is
// never mutated back, a refund is a new entry.
type Transaction struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal
	Status        TransactionStatus
	PaymentMethod string
	Description   string
	ReferenceID   string
	PointsEarned  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Wallet is the prepaid-balance view of a patient record.
type Wallet struct {
	PatientID     uuid.UUID
	Balance       decimal.Decimal
	LoyaltyPoints int
	LoyaltyTier   string
}

// TierFor maps accumulated points to a membership tier. Points only ever
// grow, so the tier never decreases.
func TierFor(points int) string {
	switch {
	case points >= 10000:
		return TierPlatinum
	case points >= 5000:
		return TierGold
	case points >= 1000:
		return TierSilver
	default:
		return TierBronze
	}
}

// PointsFor returns the loyalty points earned by a deposit: one point per
// 100 units, rounded down.
func PointsFor(amount decimal.Decimal) int {
	return int(amount.Div(decimal.NewFromInt(100)).Floor().IntPart())
}
