package main

import (
	"context"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"
)

// reportingRepo adapts store.TransactionStore's paginated GetByTenant
// into reporting.Repository's range query. TransactionStore has no
// dedicated by-range index (spec §6 only lists the tenant+created_at
// index for pagination), so this pulls a bounded page and filters in
// process; fine for the operator-facing summary this backs.
type reportingRepo struct {
	txs store.TransactionStore
	db  store.DBTX
}

const reportingScanLimit = 5000

func (r reportingRepo) ListTransactions(ctx context.Context, tenantID string, from, to time.Time, txType string) ([]domain.CreditTransaction, error) {
	page, err := r.txs.GetByTenant(ctx, r.db, tenantID, reportingScanLimit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CreditTransaction, 0, len(page.Items))
	for _, tx := range page.Items {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		if txType != "" && string(tx.Type) != txType {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
