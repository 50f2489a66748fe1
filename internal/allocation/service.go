// Package allocation implements the monthly credit allocator (C7): one
// pass over every ACTIVE subscription that allocates its plan's credits
// and drafts the matching invoice, each tenant isolated in its own
// unit-of-work scope so one failure never rolls back another tenant's
// allocation.
package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"billingledger/internal/apperror"
	"billingledger/internal/domain"
	"billingledger/internal/ledger"
	"billingledger/internal/store"
	"billingledger/internal/unitofwork"
)

// maxInvoiceNumberRetries bounds the retry described in spec §9's open
// question: generate_invoice_number races across concurrent allocators,
// so a collision on insert is retried with a freshly generated number.
const maxInvoiceNumberRetries = 5

// Service wires the allocator's collaborators.
type Service struct {
	uow      unitofwork.UnitOfWork
	subs     store.SubscriptionStore
	invoices store.InvoiceStore
	ledger   *ledger.Service
	clock    func() time.Time
}

func NewService(uow unitofwork.UnitOfWork, subs store.SubscriptionStore, invoices store.InvoiceStore, ledgerSvc *ledger.Service) *Service {
	return &Service{uow: uow, subs: subs, invoices: invoices, ledger: ledgerSvc, clock: time.Now}
}

// Run performs one allocation pass over every ACTIVE subscription.
func (s *Service) Run(ctx context.Context, params Params) (Summary, error) {
	start := s.clock()
	periodStart, periodEnd := billingPeriod(params.Year, params.Month, start)

	var subs []domain.Subscription
	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		subs, err = s.subs.GetActive(ctx, tx)
		return err
	})
	if err != nil {
		return Summary{}, apperror.Wrap(apperror.CreateInvoiceFailed, "failed to load active subscriptions", err)
	}

	summary := Summary{Total: len(subs), PeriodStart: periodStart, PeriodEnd: periodEnd}

	for _, sub := range subs {
		result := s.processSubscription(ctx, sub, periodStart, periodEnd, params)
		if result.Err != nil {
			summary.Failed++
			continue
		}
		summary.Successful++
		if result.InvoiceCreated {
			summary.InvoicesCreated++
		}
	}

	summary.ElapsedMs = time.Since(start).Milliseconds()
	return summary, nil
}

func (s *Service) processSubscription(ctx context.Context, sub domain.Subscription, periodStart, periodEnd time.Time, params Params) TenantResult {
	result := TenantResult{TenantID: sub.TenantID, SubscriptionID: sub.ID}

	idemKey := fmt.Sprintf("allocation:%s:%04d-%02d", sub.TenantID, periodStart.Year(), int(periodStart.Month()))

	_, err := s.ledger.Allocate(ctx, ledger.MutationRequest{
		TenantID:       sub.TenantID,
		Amount:         sub.MonthlyCredits,
		IdempotencyKey: idemKey,
		ReferenceType:  "subscription",
		ReferenceID:    sub.ID,
	})
	if err != nil {
		result.Err = err
		return result
	}
	result.Allocated = true

	created, err := s.createInvoice(ctx, sub, periodStart, periodEnd, params)
	if err != nil {
		// Invoice creation failing does not undo the allocation; the
		// allocate handler's own idempotency guard keeps this retry-safe.
		return result
	}
	result.InvoiceCreated = created
	return result
}

func (s *Service) createInvoice(ctx context.Context, sub domain.Subscription, periodStart, periodEnd time.Time, params Params) (bool, error) {
	var exists bool
	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		exists, err = s.invoices.ExistsForPeriod(ctx, tx, sub.TenantID, periodStart, periodEnd)
		return err
	})
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	totalAmount := sub.MonthlyCredits.Mul(params.CreditPrice)

	for attempt := 0; attempt < maxInvoiceNumberRetries; attempt++ {
		err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
			number, err := s.invoices.GenerateInvoiceNumber(ctx, tx, periodStart.Year())
			if err != nil {
				return err
			}
			invoice := domain.Invoice{
				TenantID:           sub.TenantID,
				InvoiceNumber:      number,
				Status:             domain.InvoiceDraft,
				TotalAmount:        totalAmount,
				Currency:           params.Currency,
				BillingPeriodStart: periodStart,
				BillingPeriodEnd:   periodEnd,
			}
			line := domain.NewInvoiceLine(
				"",
				fmt.Sprintf("Monthly credit allocation - %s", sub.PlanName),
				sub.MonthlyCredits,
				params.CreditPrice,
			)
			_, err = s.invoices.CreateDraft(ctx, tx, invoice, []domain.InvoiceLine{line})
			return err
		})
		if err == nil {
			return true, nil
		}
		if errors.Is(err, store.ErrDuplicateInvoicePeriod) {
			return false, nil
		}
		// Any other failure on this attempt (notably
		// store.ErrDuplicateInvoiceNumber, the generated invoice_number
		// losing a race) retries with a freshly generated number.
		if attempt == maxInvoiceNumberRetries-1 {
			return false, apperror.Wrap(apperror.CreateInvoiceFailed, "exhausted invoice number retries", err)
		}
	}
	return false, apperror.New(apperror.CreateInvoiceFailed, "exhausted invoice number retries")
}
