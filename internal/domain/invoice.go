package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceIssued    InvoiceStatus = "ISSUED"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is a billing document owned exclusively by one tenant and
// exclusively owning its InvoiceLines.
//
// Uniqueness contract: at most one invoice per (TenantID,
// BillingPeriodStart, BillingPeriodEnd). Status machine: DRAFT -> ISSUED
// -> PAID; DRAFT -> CANCELLED; ISSUED -> CANCELLED. This core only
// creates invoices in DRAFT; later transitions are out of scope.
type Invoice struct {
	ID                 string          `json:"id" db:"id"`
	TenantID           string          `json:"tenant_id" db:"tenant_id"`
	InvoiceNumber      string          `json:"invoice_number" db:"invoice_number"`
	Status             InvoiceStatus   `json:"status" db:"status"`
	TotalAmount        decimal.Decimal `json:"total_amount" db:"total_amount"`
	Currency           string          `json:"currency" db:"currency"`
	BillingPeriodStart time.Time       `json:"billing_period_start" db:"billing_period_start"`
	BillingPeriodEnd   time.Time       `json:"billing_period_end" db:"billing_period_end"`
	IssuedAt           *time.Time      `json:"issued_at,omitempty" db:"issued_at"`
	PaidAt             *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// InvoiceLine is an immutable (once the parent leaves DRAFT) line item.
//
// Invariant: TotalPrice == Quantity * UnitPrice.
type InvoiceLine struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	Description string          `json:"description" db:"description"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// NewInvoiceLine builds a line with TotalPrice derived from Quantity *
// UnitPrice, preserving the invariant at construction time.
func NewInvoiceLine(invoiceID, description string, quantity, unitPrice decimal.Decimal) InvoiceLine {
	return InvoiceLine{
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  quantity.Mul(unitPrice),
	}
}
