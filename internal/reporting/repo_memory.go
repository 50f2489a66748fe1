package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"billingledger/internal/domain"
)

// MemoryRepo is a simple in-memory reporting repository for tests and
// early development. It enforces tenant isolation on reads.
type MemoryRepo struct {
	mu           sync.Mutex
	Transactions []domain.CreditTransaction
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListTransactions(ctx context.Context, tenantID string, from, to time.Time, txType string) ([]domain.CreditTransaction, error) {
	if tenantID == "" {
		return nil, errors.New("tenant_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CreditTransaction, 0)
	for _, tx := range r.Transactions {
		if tx.TenantID != tenantID {
			continue
		}
		if !tx.CreatedAt.IsZero() {
			if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
				continue
			}
		}
		if txType != "" && string(tx.Type) != txType {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
