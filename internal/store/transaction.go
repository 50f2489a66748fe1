package store

import (
	"context"
	"database/sql"
	"time"

	"billingledger/internal/domain"

	"github.com/shopspring/decimal"
)

// TenantSum is one row of TransactionStore.SumConsumptionByTenant.
type TenantSum struct {
	TenantID string
	Sum      decimal.Decimal
}

// TransactionStore is the capability interface for the append-only
// CreditTransaction audit log. No method ever updates or deletes a row.
type TransactionStore interface {
	// Create inserts tx. Returns ErrDuplicateIdempotencyKey, not an
	// opaque driver error, when idempotency_key already exists — this is
	// a contract the caller branches on, not an exceptional path.
	Create(ctx context.Context, tx *sql.Tx, entry domain.CreditTransaction) (domain.CreditTransaction, error)

	// GetByIdempotencyKey returns the row for key, if any.
	GetByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (domain.CreditTransaction, bool, error)

	// GetByTenant returns a newest-first page (stable tie-break by id
	// descending) plus the tenant's unfiltered total row count.
	GetByTenant(ctx context.Context, db DBTX, tenantID string, limit, offset int) (Page[domain.CreditTransaction], error)

	// SumConsumptionByTenant aggregates CONSUME amounts over
	// [from, to) grouped by tenant, for the anomaly detector.
	SumConsumptionByTenant(ctx context.Context, tx *sql.Tx, from, to time.Time) ([]TenantSum, error)

	// SumByLedger folds every transaction for ledgerID using the
	// ledger-balance sign convention (domain.LedgerSignForType), for the
	// reconciler.
	SumByLedger(ctx context.Context, db DBTX, ledgerID string) (decimal.Decimal, error)
}

// DBTX is satisfied by both *sql.DB and *sql.Tx, for read-only queries
// that don't need a row lock and so don't require a caller-owned scope.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
