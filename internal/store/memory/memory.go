// Package memory provides linear-scan in-memory implementations of the
// internal/store capability interfaces, for service unit tests that don't
// want a database. Not for production use.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"
	"billingledger/internal/unitofwork"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store bundles in-memory backing for every entity behind one mutex, so
// tests can exercise cross-repository operations (e.g. a ledger lock plus
// a transaction insert) without worrying about separate lock ordering.
type Store struct {
	mu sync.Mutex

	ledgers       map[string]domain.CreditLedger // keyed by tenant_id
	transactions  []domain.CreditTransaction
	anomalies     []domain.UsageAnomaly
	subscriptions []domain.Subscription
	invoices      []domain.Invoice
	invoiceLines  map[string][]domain.InvoiceLine // keyed by invoice_id
}

func New() *Store {
	return &Store{
		ledgers:      make(map[string]domain.CreditLedger),
		invoiceLines: make(map[string][]domain.InvoiceLine),
	}
}

// UnitOfWork implements unitofwork.UnitOfWork without a real database
// transaction: it runs fn directly with a nil *sql.Tx. Repository methods
// on this package ignore the tx argument and lock Store.mu per call
// instead, which is why it is a unit-test double and not a model of real
// transaction isolation — concurrent-mutation invariants are exercised
// against Postgres, not here.
type UnitOfWork struct{ S *Store }

func (u UnitOfWork) Run(ctx context.Context, fn unitofwork.Func) error {
	return fn(ctx, nil)
}

func (s *Store) SeedSubscription(sub domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = append(s.subscriptions, sub)
}

func (s *Store) SeedLedger(l domain.CreditLedger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.TenantID] = l
}

// SeedTransaction inserts a transaction row directly, bypassing the
// idempotency-key uniqueness check Create enforces. For test setup only.
func (s *Store) SeedTransaction(t domain.CreditTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.transactions = append(s.transactions, t)
}

// LedgerRepo implements store.LedgerStore against a *Store.
type LedgerRepo struct{ S *Store }

func (r LedgerRepo) GetByTenant(ctx context.Context, _ *sql.Tx, tenantID string, _ bool) (domain.CreditLedger, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	l, ok := r.S.ledgers[tenantID]
	if !ok {
		return domain.CreditLedger{}, store.ErrNotFound
	}
	return l, nil
}

func (r LedgerRepo) Create(ctx context.Context, _ *sql.Tx, tenantID string, startingBalance decimal.Decimal, now time.Time) (domain.CreditLedger, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	l := domain.CreditLedger{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Balance:   startingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.S.ledgers[tenantID] = l
	return l, nil
}

func (r LedgerRepo) UpdateBalance(ctx context.Context, _ *sql.Tx, ledgerID string, newBalance decimal.Decimal, now time.Time) (domain.CreditLedger, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for tenantID, l := range r.S.ledgers {
		if l.ID == ledgerID {
			l.Balance = newBalance
			l.UpdatedAt = now
			r.S.ledgers[tenantID] = l
			return l, nil
		}
	}
	return domain.CreditLedger{}, store.ErrNotFound
}

func (r LedgerRepo) GetAll(ctx context.Context, _ *sql.Tx) ([]domain.CreditLedger, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	out := make([]domain.CreditLedger, 0, len(r.S.ledgers))
	for _, l := range r.S.ledgers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}
