package store

import (
	"context"
	"database/sql"
	"time"

	"billingledger/internal/domain"

	"github.com/shopspring/decimal"
)

// LedgerStore is the capability interface for the CreditLedger table.
// Every method runs inside the caller's transaction; there is no
// connection-pool-level method here because a ledger is never read or
// written outside a unit-of-work scope.
type LedgerStore interface {
	// GetByTenant returns the ledger for tenantID. When forUpdate is true
	// the row is locked in exclusive mode (SELECT ... FOR UPDATE) for the
	// remainder of tx. Returns ErrNotFound if no ledger exists yet.
	GetByTenant(ctx context.Context, tx *sql.Tx, tenantID string, forUpdate bool) (domain.CreditLedger, error)

	// Create inserts a new ledger at the given starting balance. Callers
	// that need the row locked afterward must re-acquire it with
	// GetByTenant(forUpdate=true); Create itself does not lock.
	Create(ctx context.Context, tx *sql.Tx, tenantID string, startingBalance decimal.Decimal, now time.Time) (domain.CreditLedger, error)

	// UpdateBalance writes newBalance and returns the updated row.
	UpdateBalance(ctx context.Context, tx *sql.Tx, ledgerID string, newBalance decimal.Decimal, now time.Time) (domain.CreditLedger, error)

	// GetAll returns every ledger, for the reconciler's full scan.
	GetAll(ctx context.Context, tx *sql.Tx) ([]domain.CreditLedger, error)
}
