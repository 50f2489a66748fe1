package ledger

import (
	"context"
	"testing"

	"billingledger/internal/apperror"
	"billingledger/internal/domain"
	"billingledger/internal/store/memory"

	"github.com/shopspring/decimal"
)

func newTestService() (*Service, *memory.Store) {
	s := memory.New()
	svc := NewService(memory.UnitOfWork{S: s}, memory.LedgerRepo{S: s}, memory.TransactionRepo{S: s})
	return svc, s
}

func TestConsume_RejectsInvalidArgs(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Consume(context.Background(), MutationRequest{Amount: decimal.NewFromInt(100), IdempotencyKey: "k"})
	if code, _ := apperror.CodeOf(err); code != apperror.ValidationError {
		t.Fatalf("expected VALIDATION_ERROR for missing tenant_id, got %v", err)
	}

	_, err = svc.Consume(context.Background(), MutationRequest{TenantID: "t1", Amount: decimal.Zero, IdempotencyKey: "k"})
	if code, _ := apperror.CodeOf(err); code != apperror.ValidationError {
		t.Fatalf("expected VALIDATION_ERROR for non-positive amount, got %v", err)
	}

	_, err = svc.Consume(context.Background(), MutationRequest{TenantID: "t1", Amount: decimal.NewFromInt(100)})
	if code, _ := apperror.CodeOf(err); code != apperror.ValidationError {
		t.Fatalf("expected VALIDATION_ERROR for missing idempotency_key, got %v", err)
	}
}

func TestConsume_NoLedger_Fails(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Consume(context.Background(), MutationRequest{
		TenantID: "t1", Amount: decimal.NewFromInt(100), IdempotencyKey: "k1",
	})
	if code, _ := apperror.CodeOf(err); code != apperror.LedgerNotFound {
		t.Fatalf("expected LEDGER_NOT_FOUND, got %v", err)
	}
}

func TestAllocate_FreshLedger(t *testing.T) {
	svc, _ := newTestService()

	tx, err := svc.Allocate(context.Background(), MutationRequest{
		TenantID: "T1", Amount: decimal.RequireFromString("10000.000000"),
		IdempotencyKey: "allocation:T1:2024-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.BalanceBefore.Equal(decimal.Zero) {
		t.Fatalf("expected balance_before=0, got %s", tx.BalanceBefore)
	}
	if !tx.BalanceAfter.Equal(decimal.RequireFromString("10000.000000")) {
		t.Fatalf("expected balance_after=10000, got %s", tx.BalanceAfter)
	}
}

func TestConsume_Chain(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T2", Balance: decimal.NewFromInt(1000)})

	amounts := []struct {
		amount string
		key    string
	}{
		{"100", "k1"}, {"200", "k2"}, {"300", "k3"},
	}
	var last domain.CreditTransaction
	for _, a := range amounts {
		tx, err := svc.Consume(context.Background(), MutationRequest{
			TenantID: "T2", Amount: decimal.RequireFromString(a.amount), IdempotencyKey: a.key,
		})
		if err != nil {
			t.Fatalf("unexpected error consuming %s: %v", a.amount, err)
		}
		last = tx
	}

	if !last.BalanceAfter.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected final balance 400, got %s", last.BalanceAfter)
	}
}

func TestConsume_Insufficient(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T3", Balance: decimal.RequireFromString("10.00")})

	_, err := svc.Consume(context.Background(), MutationRequest{
		TenantID: "T3", Amount: decimal.RequireFromString("100.00"), IdempotencyKey: "k1",
	})
	if code, _ := apperror.CodeOf(err); code != apperror.InsufficientCredit {
		t.Fatalf("expected INSUFFICIENT_CREDIT, got %v", err)
	}

	bal, balErr := svc.GetBalance(context.Background(), "T3")
	if balErr != nil {
		t.Fatalf("unexpected error reading balance: %v", balErr)
	}
	if !bal.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected balance unchanged at 10.00, got %s", bal.Balance)
	}
}

func TestConsume_IdempotentReplay(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T4", Balance: decimal.RequireFromString("1000.00")})

	req := MutationRequest{TenantID: "T4", Amount: decimal.RequireFromString("50.00"), IdempotencyKey: "k1"}

	first, err := svc.Consume(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Consume(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected identical transaction id on replay, got %s vs %s", first.ID, second.ID)
	}
	if !first.BalanceAfter.Equal(second.BalanceAfter) {
		t.Fatalf("expected identical balance_after on replay")
	}

	page, err := svc.ListTransactions(context.Background(), "T4", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error listing transactions: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected exactly one transaction row, got %d", page.Total)
	}
}

func TestConsumeThenRefund_RestoresBalance(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T5", Balance: decimal.RequireFromString("500.00")})

	if _, err := svc.Consume(context.Background(), MutationRequest{
		TenantID: "T5", Amount: decimal.RequireFromString("200.00"), IdempotencyKey: "consume-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refundTx, err := svc.Refund(context.Background(), MutationRequest{
		TenantID: "T5", Amount: decimal.RequireFromString("200.00"), IdempotencyKey: "refund-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !refundTx.BalanceAfter.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("expected balance restored to 500.00, got %s", refundTx.BalanceAfter)
	}
}

func TestGetBalance_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetBalance(context.Background(), "missing")
	if code, _ := apperror.CodeOf(err); code != apperror.LedgerNotFound {
		t.Fatalf("expected LEDGER_NOT_FOUND, got %v", err)
	}
}

func TestListTransactions_Defaults(t *testing.T) {
	svc, s := newTestService()
	s.SeedLedger(domain.CreditLedger{ID: "l1", TenantID: "T6", Balance: decimal.NewFromInt(1000)})
	if _, err := svc.Consume(context.Background(), MutationRequest{
		TenantID: "T6", Amount: decimal.NewFromInt(10), IdempotencyKey: "k1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := svc.ListTransactions(context.Background(), "T6", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Limit != DefaultListLimit || page.Offset != DefaultListOffset {
		t.Fatalf("expected default limit/offset, got %d/%d", page.Limit, page.Offset)
	}
}
