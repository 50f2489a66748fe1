package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"
)

// InvoiceRepo implements store.InvoiceStore.
type InvoiceRepo struct{}

const invoiceColumns = `
id, tenant_id, invoice_number, status, total_amount, currency,
billing_period_start, billing_period_end, issued_at, paid_at, created_at,
updated_at
`

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var inv domain.Invoice
	var issuedAt, paidAt sql.NullTime
	if err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.Status, &inv.TotalAmount,
		&inv.Currency, &inv.BillingPeriodStart, &inv.BillingPeriodEnd,
		&issuedAt, &paidAt, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return domain.Invoice{}, err
	}
	if issuedAt.Valid {
		inv.IssuedAt = &issuedAt.Time
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return inv, nil
}

func (InvoiceRepo) ExistsForPeriod(ctx context.Context, tx *sql.Tx, tenantID string, start, end time.Time) (bool, error) {
	const q = `
SELECT exists(
  SELECT 1 FROM invoices
  WHERE tenant_id = $1 AND billing_period_start = $2 AND billing_period_end = $3
)
`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, tenantID, start, end).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GenerateInvoiceNumber reads MAX(invoice_number) for year and returns the
// next sequence. This is intentionally racy under concurrent callers: the
// invoice_number uniqueness constraint is what makes collisions fail
// closed; the allocator wraps this in a bounded retry loop.
func (InvoiceRepo) GenerateInvoiceNumber(ctx context.Context, tx *sql.Tx, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	const q = `
SELECT invoice_number FROM invoices
WHERE invoice_number LIKE $1
ORDER BY invoice_number DESC
LIMIT 1
`
	var last string
	err := tx.QueryRowContext(ctx, q, prefix+"%").Scan(&last)
	next := 1
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	} else {
		var seq int
		if _, scanErr := fmt.Sscanf(last, prefix+"%06d", &seq); scanErr == nil {
			next = seq + 1
		}
	}
	return fmt.Sprintf("%s%06d", prefix, next), nil
}

// invoiceTenantPeriodConstraint and invoiceNumberConstraint name the two
// unique constraints on the invoices table. CreateDraft must distinguish
// them: a period collision means "already drafted this tenant-period"
// (store.ErrDuplicateInvoicePeriod), but an invoice_number collision
// means the caller's generated number lost a race and must retry with a
// fresh one (the allocator's bounded retry loop) — conflating the two
// would make that retry loop misfire as a silent "already exists" skip.
const (
	invoiceTenantPeriodConstraint = "invoices_tenant_id_billing_period_start_billing_period_end_key"
	invoiceNumberConstraint       = "invoices_invoice_number_key"
)

func (InvoiceRepo) CreateDraft(ctx context.Context, tx *sql.Tx, invoice domain.Invoice, lines []domain.InvoiceLine) (domain.Invoice, error) {
	q := `
INSERT INTO invoices (` + invoiceColumns + `)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, NULL, NULL, $8, $8)
RETURNING ` + invoiceColumns
	inv, err := scanInvoice(tx.QueryRowContext(ctx, q,
		invoice.TenantID, invoice.InvoiceNumber, invoice.Status, invoice.TotalAmount,
		invoice.Currency, invoice.BillingPeriodStart, invoice.BillingPeriodEnd, invoice.CreatedAt,
	))
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			switch constraint {
			case invoiceTenantPeriodConstraint:
				return domain.Invoice{}, store.ErrDuplicateInvoicePeriod
			case invoiceNumberConstraint:
				return domain.Invoice{}, store.ErrDuplicateInvoiceNumber
			default:
				return domain.Invoice{}, store.ErrDuplicateInvoicePeriod
			}
		}
		return domain.Invoice{}, err
	}

	const lineQ = `
INSERT INTO invoice_lines (id, invoice_id, description, quantity, unit_price, total_price, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
`
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, lineQ, inv.ID, line.Description, line.Quantity, line.UnitPrice, line.TotalPrice, invoice.CreatedAt); err != nil {
			return domain.Invoice{}, err
		}
	}
	return inv, nil
}

func (InvoiceRepo) GetByID(ctx context.Context, db store.DBTX, id string) (domain.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Invoice{}, store.ErrNotFound
		}
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (InvoiceRepo) GetLines(ctx context.Context, db store.DBTX, invoiceID string) ([]domain.InvoiceLine, error) {
	const q = `
SELECT id, invoice_id, description, quantity, unit_price, total_price, created_at
FROM invoice_lines
WHERE invoice_id = $1
ORDER BY created_at
`
	rows, err := db.QueryContext(ctx, q, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InvoiceLine
	for rows.Next() {
		var l domain.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.TotalPrice, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (InvoiceRepo) ListByTenant(ctx context.Context, db store.DBTX, tenantID string, limit, offset int) (store.Page[domain.Invoice], error) {
	const countQ = `SELECT count(*) FROM invoices WHERE tenant_id = $1`
	var total int
	if err := db.QueryRowContext(ctx, countQ, tenantID).Scan(&total); err != nil {
		return store.Page[domain.Invoice]{}, err
	}

	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 ORDER BY billing_period_start DESC LIMIT $2 OFFSET $3`
	rows, err := db.QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return store.Page[domain.Invoice]{}, err
	}
	defer rows.Close()

	var items []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return store.Page[domain.Invoice]{}, err
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return store.Page[domain.Invoice]{}, err
	}
	return store.Page[domain.Invoice]{Items: items, Total: total}, nil
}
