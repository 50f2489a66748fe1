// Package invoice implements the read-side invoice/proforma query
// handlers (C5's invoice counterpart): fetch a draft invoice and its
// lines, and render a proforma document through an injected collaborator.
//
// Proforma rendering is deliberately out of the core's scope (spec §1);
// this package only defines the contract and a demo stub.
package invoice

import (
	"context"
	"errors"

	"billingledger/internal/apperror"
	"billingledger/internal/domain"
	"billingledger/internal/store"
)

// ProformaRenderer is the PDF collaborator's contract (spec §6): render an
// invoice and its lines to bytes. Output must begin with "%PDF-".
// Implementations are swappable; the core never inspects the format.
type ProformaRenderer interface {
	GenerateProforma(ctx context.Context, inv domain.Invoice, lines []domain.InvoiceLine) ([]byte, error)
}

// Service wires the invoice query handlers and the proforma renderer.
type Service struct {
	invoices store.InvoiceStore
	db       store.DBTX
	renderer ProformaRenderer
}

func NewService(invoices store.InvoiceStore, db store.DBTX, renderer ProformaRenderer) *Service {
	if renderer == nil {
		renderer = StubRenderer{}
	}
	return &Service{invoices: invoices, db: db, renderer: renderer}
}

// Get returns an invoice and its lines by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Invoice, []domain.InvoiceLine, error) {
	inv, err := s.invoices.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invoice{}, nil, apperror.New(apperror.InvoiceNotFound, "invoice not found: "+id)
		}
		return domain.Invoice{}, nil, err
	}
	lines, err := s.invoices.GetLines(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	return inv, lines, nil
}

// ListByTenant is the supplemented invoice-listing read path (original
// Python's invoice_repository.get_by_tenant_id), newest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID string, limit, offset int) (store.Page[domain.Invoice], error) {
	if limit <= 0 {
		limit = 20
	}
	return s.invoices.ListByTenant(ctx, s.db, tenantID, limit, offset)
}

// Proforma renders a DRAFT invoice's proforma bytes. Only DRAFT invoices
// may be proforma'd (spec §7 INVALID_INVOICE_STATUS); ISSUED/PAID/
// CANCELLED invoices have already left the window this document is for.
func (s *Service) Proforma(ctx context.Context, id string) (domain.Invoice, []byte, error) {
	inv, lines, err := s.Get(ctx, id)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	if inv.Status != domain.InvoiceDraft {
		return domain.Invoice{}, nil, apperror.New(apperror.InvalidInvoiceStatus, "invoice is not in DRAFT status: "+string(inv.Status))
	}
	pdf, err := s.renderer.GenerateProforma(ctx, inv, lines)
	if err != nil {
		return domain.Invoice{}, nil, apperror.Wrap(apperror.GenerateProformaFailed, "proforma generation failed", err)
	}
	return inv, pdf, nil
}
