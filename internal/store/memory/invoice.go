package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"

	"github.com/google/uuid"
)

// InvoiceRepo implements store.InvoiceStore against a *Store.
type InvoiceRepo struct{ S *Store }

func (r InvoiceRepo) ExistsForPeriod(ctx context.Context, _ *sql.Tx, tenantID string, start, end time.Time) (bool, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, inv := range r.S.invoices {
		if inv.TenantID == tenantID && inv.BillingPeriodStart.Equal(start) && inv.BillingPeriodEnd.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (r InvoiceRepo) GenerateInvoiceNumber(ctx context.Context, _ *sql.Tx, year int) (string, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	prefix := fmt.Sprintf("INV-%d-", year)
	max := 0
	for _, inv := range r.S.invoices {
		if !strings.HasPrefix(inv.InvoiceNumber, prefix) {
			continue
		}
		var seq int
		if _, err := fmt.Sscanf(inv.InvoiceNumber, prefix+"%06d", &seq); err == nil && seq > max {
			max = seq
		}
	}
	return fmt.Sprintf("%s%06d", prefix, max+1), nil
}

func (r InvoiceRepo) CreateDraft(ctx context.Context, _ *sql.Tx, invoice domain.Invoice, lines []domain.InvoiceLine) (domain.Invoice, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	for _, existing := range r.S.invoices {
		if existing.TenantID == invoice.TenantID &&
			existing.BillingPeriodStart.Equal(invoice.BillingPeriodStart) &&
			existing.BillingPeriodEnd.Equal(invoice.BillingPeriodEnd) {
			return domain.Invoice{}, store.ErrDuplicateInvoicePeriod
		}
		if existing.InvoiceNumber == invoice.InvoiceNumber {
			return domain.Invoice{}, store.ErrDuplicateInvoiceNumber
		}
	}

	invoice.ID = uuid.NewString()
	r.S.invoices = append(r.S.invoices, invoice)

	stored := make([]domain.InvoiceLine, len(lines))
	for i, line := range lines {
		line.ID = uuid.NewString()
		line.InvoiceID = invoice.ID
		stored[i] = line
	}
	r.S.invoiceLines[invoice.ID] = stored
	return invoice, nil
}

func (r InvoiceRepo) GetByID(ctx context.Context, _ store.DBTX, id string) (domain.Invoice, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, inv := range r.S.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return domain.Invoice{}, store.ErrNotFound
}

func (r InvoiceRepo) GetLines(ctx context.Context, _ store.DBTX, invoiceID string) ([]domain.InvoiceLine, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	return append([]domain.InvoiceLine(nil), r.S.invoiceLines[invoiceID]...), nil
}

func (r InvoiceRepo) ListByTenant(ctx context.Context, _ store.DBTX, tenantID string, limit, offset int) (store.Page[domain.Invoice], error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	var matched []domain.Invoice
	for _, inv := range r.S.invoices {
		if inv.TenantID == tenantID {
			matched = append(matched, inv)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].BillingPeriodStart.After(matched[j].BillingPeriodStart) })

	total := len(matched)
	if offset >= total {
		return store.Page[domain.Invoice]{Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return store.Page[domain.Invoice]{Items: matched[offset:end], Total: total}, nil
}
