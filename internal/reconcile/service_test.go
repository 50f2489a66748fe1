package reconcile

import (
	"context"
	"testing"

	"billingledger/internal/domain"
	"billingledger/internal/store/memory"

	"github.com/shopspring/decimal"
)

func newTestService() (*Service, *memory.Store) {
	s := memory.New()
	svc := NewService(memory.UnitOfWork{S: s}, memory.LedgerRepo{S: s}, memory.TransactionRepo{S: s}, nil)
	return svc, s
}

func TestRun_NoDiscrepancies(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T1", Balance: decimal.NewFromInt(100)})
	s.SeedTransaction(domain.CreditTransaction{
		TenantID: "T1", LedgerID: "l1", Type: domain.TransactionAllocate, Amount: decimal.NewFromInt(100),
	})

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Checked != 1 {
		t.Fatalf("expected 1 ledger checked, got %d", summary.Checked)
	}
	if len(summary.Discrepancies) != 0 {
		t.Fatalf("expected no discrepancies, got %+v", summary.Discrepancies)
	}
}

func TestRun_FlagsDiscrepancy(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T1", Balance: decimal.NewFromInt(500)})
	s.SeedTransaction(domain.CreditTransaction{
		TenantID: "T1", LedgerID: "l1", Type: domain.TransactionAllocate, Amount: decimal.NewFromInt(100),
	})

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %+v", summary.Discrepancies)
	}
	d := summary.Discrepancies[0]
	if !d.Delta.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected delta 500-100=400, got %s", d.Delta)
	}
}
