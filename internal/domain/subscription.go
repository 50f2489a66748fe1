package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

// Subscription assigns a tenant to a billing plan. Consumed by the
// monthly allocator, which only reads ACTIVE subscriptions.
type Subscription struct {
	ID             string             `json:"id" db:"id"`
	TenantID       string             `json:"tenant_id" db:"tenant_id"`
	Status         SubscriptionStatus `json:"status" db:"status"`
	PlanName       string             `json:"plan_name" db:"plan_name"`
	MonthlyCredits decimal.Decimal    `json:"monthly_credits" db:"monthly_credits"`
	StartDate      time.Time          `json:"start_date" db:"start_date"`
	EndDate        *time.Time         `json:"end_date,omitempty" db:"end_date"`
}
