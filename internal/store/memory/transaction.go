package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements store.TransactionStore against a *Store.
type TransactionRepo struct{ S *Store }

func (r TransactionRepo) Create(ctx context.Context, _ *sql.Tx, entry domain.CreditTransaction) (domain.CreditTransaction, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	for _, t := range r.S.transactions {
		if t.IdempotencyKey == entry.IdempotencyKey {
			return domain.CreditTransaction{}, store.ErrDuplicateIdempotencyKey
		}
	}
	entry.ID = uuid.NewString()
	r.S.transactions = append(r.S.transactions, entry)
	return entry, nil
}

func (r TransactionRepo) GetByIdempotencyKey(ctx context.Context, _ *sql.Tx, key string) (domain.CreditTransaction, bool, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, t := range r.S.transactions {
		if t.IdempotencyKey == key {
			return t, true, nil
		}
	}
	return domain.CreditTransaction{}, false, nil
}

func (r TransactionRepo) GetByTenant(ctx context.Context, _ store.DBTX, tenantID string, limit, offset int) (store.Page[domain.CreditTransaction], error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	var matched []domain.CreditTransaction
	for _, t := range r.S.transactions {
		if t.TenantID == tenantID {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return store.Page[domain.CreditTransaction]{Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return store.Page[domain.CreditTransaction]{Items: matched[offset:end], Total: total}, nil
}

func (r TransactionRepo) SumConsumptionByTenant(ctx context.Context, _ *sql.Tx, from, to time.Time) ([]store.TenantSum, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, t := range r.S.transactions {
		if t.Type != domain.TransactionConsume {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		if _, ok := sums[t.TenantID]; !ok {
			order = append(order, t.TenantID)
		}
		sums[t.TenantID] = sums[t.TenantID].Add(t.Amount)
	}

	out := make([]store.TenantSum, 0, len(order))
	for _, tenantID := range order {
		out = append(out, store.TenantSum{TenantID: tenantID, Sum: sums[tenantID]})
	}
	return out, nil
}

func (r TransactionRepo) SumByLedger(ctx context.Context, _ store.DBTX, ledgerID string) (decimal.Decimal, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	sum := decimal.Zero
	for _, t := range r.S.transactions {
		if t.LedgerID != ledgerID {
			continue
		}
		sum = sum.Add(domain.LedgerSignForType(t.Type, t.Amount))
	}
	return sum, nil
}
