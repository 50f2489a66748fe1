package allocation

import (
	"context"
	"testing"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/ledger"
	"billingledger/internal/store/memory"

	"github.com/shopspring/decimal"
)

func newTestService() (*Service, *memory.Store) {
	s := memory.New()
	uow := memory.UnitOfWork{S: s}
	ledgerSvc := ledger.NewService(uow, memory.LedgerRepo{S: s}, memory.TransactionRepo{S: s})
	svc := NewService(uow, memory.SubscriptionRepo{S: s}, memory.InvoiceRepo{S: s}, ledgerSvc)
	return svc, s
}

func TestRun_AllocatesAndInvoicesActiveSubscriptions(t *testing.T) {
	svc, s := newTestService()
	s.SeedSubscription(domain.Subscription{
		ID: "sub-1", TenantID: "T1", Status: domain.SubscriptionActive,
		PlanName: "pro", MonthlyCredits: decimal.NewFromInt(10000),
	})
	s.SeedSubscription(domain.Subscription{
		ID: "sub-2", TenantID: "T2", Status: domain.SubscriptionCancelled,
		PlanName: "pro", MonthlyCredits: decimal.NewFromInt(5000),
	})

	summary, err := svc.Run(context.Background(), Params{
		Year: 2026, Month: 6, CreditPrice: decimal.RequireFromString("0.015"), Currency: "USD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 {
		t.Fatalf("expected only the active subscription counted, got total=%d", summary.Total)
	}
	if summary.Successful != 1 || summary.Failed != 0 {
		t.Fatalf("expected 1 successful 0 failed, got %+v", summary)
	}
	if summary.InvoicesCreated != 1 {
		t.Fatalf("expected 1 invoice created, got %d", summary.InvoicesCreated)
	}

	bal, err := ledger.NewService(memory.UnitOfWork{S: s}, memory.LedgerRepo{S: s}, memory.TransactionRepo{S: s}).
		GetBalance(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error reading balance: %v", err)
	}
	if !bal.Balance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance 10000, got %s", bal.Balance)
	}

	page, err := memory.InvoiceRepo{S: s}.ListByTenant(context.Background(), nil, "T1", 10, 0)
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("expected 1 invoice row, got %+v err=%v", page, err)
	}
	if !page.Items[0].TotalAmount.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("expected total_amount 10000*0.015=150, got %s", page.Items[0].TotalAmount)
	}
}

func TestRun_ReplayDoesNotDuplicateInvoiceOrAllocation(t *testing.T) {
	svc, s := newTestService()
	s.SeedSubscription(domain.Subscription{
		ID: "sub-1", TenantID: "T1", Status: domain.SubscriptionActive,
		PlanName: "pro", MonthlyCredits: decimal.NewFromInt(10000),
	})

	params := Params{Year: 2026, Month: 6, CreditPrice: decimal.RequireFromString("0.015"), Currency: "USD"}

	first, err := svc.Run(context.Background(), params)
	if err != nil || first.InvoicesCreated != 1 {
		t.Fatalf("setup run failed: %+v err=%v", first, err)
	}

	second, err := svc.Run(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if second.Successful != 1 {
		t.Fatalf("expected replay's allocate to still report success (idempotent), got %+v", second)
	}
	if second.InvoicesCreated != 0 {
		t.Fatalf("expected replay to create no additional invoice, got %d", second.InvoicesCreated)
	}

	page, err := memory.InvoiceRepo{S: s}.ListByTenant(context.Background(), nil, "T1", 10, 0)
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("expected exactly 1 invoice after replay, got %+v err=%v", page, err)
	}

	bal, err := ledger.NewService(memory.UnitOfWork{S: s}, memory.LedgerRepo{S: s}, memory.TransactionRepo{S: s}).
		GetBalance(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error reading balance: %v", err)
	}
	if !bal.Balance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance unchanged at 10000 after replay, got %s", bal.Balance)
	}
}

func TestBillingPeriod_DefaultsToPreviousMonth(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	start, end := billingPeriod(0, 0, now)
	if start.Year() != 2026 || start.Month() != time.June || start.Day() != 1 {
		t.Fatalf("expected period start 2026-06-01, got %s", start)
	}
	if end.Year() != 2026 || end.Month() != time.July || end.Day() != 1 {
		t.Fatalf("expected period end 2026-07-01, got %s", end)
	}
}

func TestBillingPeriod_JanuaryRollsBackToDecemberPreviousYear(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	start, _ := billingPeriod(0, 0, now)
	if start.Year() != 2025 || start.Month() != time.December {
		t.Fatalf("expected period start 2025-12-01, got %s", start)
	}
}
