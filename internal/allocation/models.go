package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is Run's return value (spec §4.6: total, successful, failed,
// invoices_created, period, elapsed_ms).
type Summary struct {
	Total           int
	Successful      int
	Failed          int
	InvoicesCreated int
	PeriodStart     time.Time
	PeriodEnd       time.Time
	ElapsedMs       int64
}

// TenantResult is one subscription's outcome, surfaced for logging and
// tests; Run's Summary is the aggregate operators actually consume.
type TenantResult struct {
	TenantID        string
	SubscriptionID  string
	Allocated       bool
	InvoiceCreated  bool
	Err             error
}

// Params configures one allocation run. CreditPrice and Currency come
// from MONTHLY_ALLOCATION_CREDIT_PRICE / the deployment's billing
// currency; Year/Month are 0 to default to the previous calendar month.
type Params struct {
	Year        int
	Month       int
	CreditPrice decimal.Decimal
	Currency    string
}

// billingPeriod returns [start, end) for year/month, defaulting to the
// previous calendar month when year or month is 0 (spec §4.6).
func billingPeriod(year, month int, now time.Time) (time.Time, time.Time) {
	if year == 0 || month == 0 {
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		year, month = prev.Year(), int(prev.Month())
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start, end
}
