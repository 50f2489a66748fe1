package ledger

import (
	"time"

	"billingledger/internal/domain"

	"github.com/shopspring/decimal"
)

// MutationRequest is the shared shape behind Consume, Refund, Allocate and
// Adjust: every mutation carries a tenant, a signed-per-op amount, an
// idempotency key, and opaque reference/metadata fields the core never
// interprets.
type MutationRequest struct {
	TenantID       string
	Amount         decimal.Decimal
	IdempotencyKey string
	ReferenceType  string
	ReferenceID    string
	Metadata       string
}

// BalanceSnapshot is the GetBalance response shape.
type BalanceSnapshot struct {
	TenantID  string
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

// TransactionPage is the ListTransactions response shape.
type TransactionPage struct {
	Items  []domain.CreditTransaction
	Total  int
	Limit  int
	Offset int
}

const (
	DefaultListLimit  = 20
	DefaultListOffset = 0
)
