package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeRange is the common filtering input.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ConsumptionSummaryRequest requests an aggregation of a tenant's credit
// transactions over Range, optionally narrowed to one transaction type
// (domain.TransactionConsume, etc).
type ConsumptionSummaryRequest struct {
	TenantID string    `json:"tenant_id"`
	Range    TimeRange `json:"range"`
	Type     string    `json:"type,omitempty"`
}

// ConsumptionSummary is the aggregated view over a tenant's ledger
// activity: total consumed/refunded/allocated, and the net balance delta
// across the window, derived from the same sign convention the ledger
// itself applies.
type ConsumptionSummary struct {
	TenantID string `json:"tenant_id"`

	TotalConsumed  decimal.Decimal `json:"total_consumed"`
	TotalRefunded  decimal.Decimal `json:"total_refunded"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	TotalAdjusted  decimal.Decimal `json:"total_adjusted"`
	NetDelta       decimal.Decimal `json:"net_delta"`

	TransactionCount int `json:"transaction_count"`
}
