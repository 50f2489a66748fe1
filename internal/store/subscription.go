package store

import (
	"context"
	"database/sql"

	"billingledger/internal/domain"
)

// SubscriptionStore is the capability interface for plan assignments.
// The core only ever reads subscriptions; nothing in this module creates
// or cancels one.
type SubscriptionStore interface {
	// GetActive returns every ACTIVE subscription, for the monthly
	// allocator's per-tenant loop.
	GetActive(ctx context.Context, tx *sql.Tx) ([]domain.Subscription, error)
}
