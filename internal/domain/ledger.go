package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditLedger is the per-tenant prepaid credit balance record.
//
// Invariant: Balance must never go negative. No code should ever mutate
// Balance without writing a corresponding CreditTransaction row in the
// same database transaction — the ledger table is a projection, the
// transaction log is the source of truth.
type CreditLedger struct {
	ID            string          `json:"id" db:"id"`
	TenantID      string          `json:"tenant_id" db:"tenant_id"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	MonthlyLimit  *decimal.Decimal `json:"monthly_limit,omitempty" db:"monthly_limit"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// TransactionType categorizes a CreditTransaction row. Keep stable; these
// values are persisted.
type TransactionType string

const (
	TransactionConsume  TransactionType = "CONSUME"
	TransactionRefund   TransactionType = "REFUND"
	TransactionAllocate TransactionType = "ALLOCATE"
	TransactionAdjust   TransactionType = "ADJUST"
)

// CreditTransaction is an immutable, append-only audit entry recording a
// single balance mutation.
//
// Invariants:
//   - IdempotencyKey is unique across the whole table.
//   - For CONSUME: BalanceAfter = BalanceBefore - Amount.
//   - For REFUND/ALLOCATE: BalanceAfter = BalanceBefore + Amount.
//   - For ADJUST: BalanceAfter = BalanceBefore + Amount (Amount may be negative).
//   - Never updated or deleted after insert.
type CreditTransaction struct {
	ID              string          `json:"id" db:"id"`
	TenantID        string          `json:"tenant_id" db:"tenant_id"`
	LedgerID        string          `json:"ledger_id" db:"ledger_id"`
	Type            TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	BalanceBefore   decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after" db:"balance_after"`
	ReferenceType   string          `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID     string          `json:"reference_id,omitempty" db:"reference_id"`
	IdempotencyKey  string          `json:"idempotency_key" db:"idempotency_key"`
	Metadata        string          `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// LedgerSignForType returns the sign convention used to fold a
// transaction into a running ledger balance: CONSUME subtracts,
// REFUND/ALLOCATE add, ADJUST contributes its own stored sign.
func LedgerSignForType(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionConsume:
		return amount.Neg()
	case TransactionRefund, TransactionAllocate:
		return amount
	case TransactionAdjust:
		return amount
	default:
		return decimal.Zero
	}
}

// Apply is the command-handler template's step 5: CONSUME subtracts,
// REFUND/ALLOCATE add, ADJUST adds its signed amount. Decimal arithmetic
// is exact at scale 6; no floating point on any ledger path.
func Apply(t TransactionType, balanceBefore, amount decimal.Decimal) decimal.Decimal {
	return balanceBefore.Add(LedgerSignForType(t, amount))
}
