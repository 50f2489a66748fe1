package reporting

import (
	"context"
	"testing"
	"time"

	"billingledger/internal/domain"

	"github.com/shopspring/decimal"
)

func TestConsumptionSummary_TenantIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Transactions = []domain.CreditTransaction{
		{ID: "t1", TenantID: "tenant-a", Type: domain.TransactionConsume, Amount: decimal.NewFromInt(30), CreatedAt: now},
		{ID: "t2", TenantID: "tenant-b", Type: domain.TransactionConsume, Amount: decimal.NewFromInt(50), CreatedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.ConsumptionSummary(context.Background(), ConsumptionSummaryRequest{
		TenantID: "tenant-a",
		Range:    TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TransactionCount != 1 {
		t.Fatalf("expected 1 transaction, got %d", out.TransactionCount)
	}
	if !out.TotalConsumed.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total consumed 30, got %s", out.TotalConsumed)
	}
}

func TestConsumptionSummary_AggregatesByType(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Transactions = []domain.CreditTransaction{
		{ID: "t1", TenantID: "t", Type: domain.TransactionAllocate, Amount: decimal.NewFromInt(1000), CreatedAt: now},
		{ID: "t2", TenantID: "t", Type: domain.TransactionConsume, Amount: decimal.NewFromInt(200), CreatedAt: now},
		{ID: "t3", TenantID: "t", Type: domain.TransactionConsume, Amount: decimal.NewFromInt(50), CreatedAt: now},
		{ID: "t4", TenantID: "t", Type: domain.TransactionRefund, Amount: decimal.NewFromInt(25), CreatedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.ConsumptionSummary(context.Background(), ConsumptionSummaryRequest{
		TenantID: "t",
		Range:    TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.TotalConsumed.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected total consumed 250, got %s", out.TotalConsumed)
	}
	if !out.TotalAllocated.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected total allocated 1000, got %s", out.TotalAllocated)
	}
	if !out.TotalRefunded.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected total refunded 25, got %s", out.TotalRefunded)
	}
	// net = +1000 (allocate) - 250 (consume) + 25 (refund) = 775
	if !out.NetDelta.Equal(decimal.NewFromInt(775)) {
		t.Fatalf("expected net delta 775, got %s", out.NetDelta)
	}
}

func TestConsumptionSummary_RequiresValidRange(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if _, err := svc.ConsumptionSummary(context.Background(), ConsumptionSummaryRequest{TenantID: "t"}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
