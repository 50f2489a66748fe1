package store

import (
	"context"
	"database/sql"
	"time"

	"billingledger/internal/domain"
)

// InvoiceStore is the capability interface for Invoice and its owned
// InvoiceLines.
type InvoiceStore interface {
	ExistsForPeriod(ctx context.Context, tx *sql.Tx, tenantID string, start, end time.Time) (bool, error)

	// GenerateInvoiceNumber returns the next INV-YYYY-NNNNNN sequence
	// number for year, derived from MAX(invoice_number) for that year.
	// Racy under concurrent allocators by design (spec open question);
	// callers bound retries around generation + insert themselves.
	GenerateInvoiceNumber(ctx context.Context, tx *sql.Tx, year int) (string, error)

	// CreateDraft inserts invoice and its lines atomically. Returns
	// ErrDuplicateInvoicePeriod on a (tenant_id, billing_period_start,
	// billing_period_end) collision.
	CreateDraft(ctx context.Context, tx *sql.Tx, invoice domain.Invoice, lines []domain.InvoiceLine) (domain.Invoice, error)

	GetByID(ctx context.Context, db DBTX, id string) (domain.Invoice, error)

	GetLines(ctx context.Context, db DBTX, invoiceID string) ([]domain.InvoiceLine, error)

	ListByTenant(ctx context.Context, db DBTX, tenantID string, limit, offset int) (Page[domain.Invoice], error)
}
