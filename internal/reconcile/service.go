// Package reconcile implements the read-only ledger integrity loop (C8):
// for every ledger, compare the stored balance against the sum of its
// transaction history and emit a discrepancy when they diverge. Never
// mutates.
package reconcile

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"billingledger/internal/apperror"
	"billingledger/internal/domain"
	"billingledger/internal/store"
	"billingledger/internal/unitofwork"

	"github.com/shopspring/decimal"
)

// Discrepancy is one ledger whose stored balance disagrees with the
// balance calculated from its transaction history.
type Discrepancy struct {
	TenantID          string
	LedgerID          string
	StoredBalance     decimal.Decimal
	CalculatedBalance decimal.Decimal
	Delta             decimal.Decimal // stored - calculated
}

// Summary is Run's return value (spec §4.7).
type Summary struct {
	Checked       int
	Discrepancies []Discrepancy
	RunAt         time.Time
	ElapsedMs     int64
}

// Service wires the reconciler's collaborators.
type Service struct {
	uow     unitofwork.UnitOfWork
	ledgers store.LedgerStore
	txs     store.TransactionStore
	log     *slog.Logger
	clock   func() time.Time
}

func NewService(uow unitofwork.UnitOfWork, ledgers store.LedgerStore, txs store.TransactionStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{uow: uow, ledgers: ledgers, txs: txs, log: log, clock: time.Now}
}

// Run performs one reconciliation pass over every ledger.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	start := s.clock()
	runAt := start.UTC()

	var ledgers []domain.CreditLedger
	var discrepancies []Discrepancy

	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		ledgers, err = s.ledgers.GetAll(ctx, tx)
		if err != nil {
			return err
		}

		for _, l := range ledgers {
			calculated, err := s.txs.SumByLedger(ctx, tx, l.ID)
			if err != nil {
				return err
			}
			if l.Balance.Equal(calculated) {
				continue
			}
			d := Discrepancy{
				TenantID:          l.TenantID,
				LedgerID:          l.ID,
				StoredBalance:     l.Balance,
				CalculatedBalance: calculated,
				Delta:             l.Balance.Sub(calculated),
			}
			discrepancies = append(discrepancies, d)
			s.log.Error("ledger balance discrepancy",
				"tenant_id", d.TenantID, "ledger_id", d.LedgerID,
				"stored_balance", d.StoredBalance.String(),
				"calculated_balance", d.CalculatedBalance.String(),
				"delta", d.Delta.String(),
			)
		}
		return nil
	})
	if err != nil {
		return Summary{}, apperror.Wrap(apperror.ReconciliationFailed, "reconciliation run failed", err)
	}

	return Summary{
		Checked:       len(ledgers),
		Discrepancies: discrepancies,
		RunAt:         runAt,
		ElapsedMs:     time.Since(start).Milliseconds(),
	}, nil
}
