package memory

import (
	"context"
	"database/sql"
	"sort"

	"billingledger/internal/domain"
)

// SubscriptionRepo implements store.SubscriptionStore against a *Store.
type SubscriptionRepo struct{ S *Store }

func (r SubscriptionRepo) GetActive(ctx context.Context, _ *sql.Tx) ([]domain.Subscription, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	var out []domain.Subscription
	for _, s := range r.S.subscriptions {
		if s.Status == domain.SubscriptionActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}
