// Package reporting aggregates a tenant's credit-ledger activity over a
// time window for operator dashboards. It never mutates state; every
// number here is derived from the transaction log.
package reporting

import (
	"context"
	"errors"
	"time"

	"billingledger/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must enforce tenant filtering.
// - Implementations should query the immutable transaction log, never a
//   derived/cached balance.
type Repository interface {
	ListTransactions(ctx context.Context, tenantID string, from, to time.Time, txType string) ([]domain.CreditTransaction, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// ConsumptionSummary aggregates a tenant's transaction log over Range,
// breaking totals down by transaction type using the same sign
// convention (domain.LedgerSignForType) the ledger itself applies.
func (s *Service) ConsumptionSummary(ctx context.Context, req ConsumptionSummaryRequest) (ConsumptionSummary, error) {
	if req.TenantID == "" {
		return ConsumptionSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return ConsumptionSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ConsumptionSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListTransactions(ctx, req.TenantID, req.Range.From, req.Range.To, req.Type)
	if err != nil {
		return ConsumptionSummary{}, err
	}

	out := ConsumptionSummary{
		TenantID:       req.TenantID,
		TotalConsumed:  decimal.Zero,
		TotalRefunded:  decimal.Zero,
		TotalAllocated: decimal.Zero,
		TotalAdjusted:  decimal.Zero,
		NetDelta:       decimal.Zero,
	}
	for _, tx := range rows {
		out.TransactionCount++
		signed := domain.LedgerSignForType(tx.Type, tx.Amount)
		out.NetDelta = out.NetDelta.Add(signed)

		switch tx.Type {
		case domain.TransactionConsume:
			out.TotalConsumed = out.TotalConsumed.Add(tx.Amount)
		case domain.TransactionRefund:
			out.TotalRefunded = out.TotalRefunded.Add(tx.Amount)
		case domain.TransactionAllocate:
			out.TotalAllocated = out.TotalAllocated.Add(tx.Amount)
		case domain.TransactionAdjust:
			out.TotalAdjusted = out.TotalAdjusted.Add(tx.Amount)
		}
	}
	return out, nil
}
