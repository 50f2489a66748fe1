package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresTenantAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeManualAdjustment}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{TenantID: "t1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogManualAdjustment(context.Background(), "t1", "u1", "billing_ops", "1.2.3.4", "ledger1", "tx1", "manual correction", "{}"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].Type != EventTypeManualAdjustment {
		t.Fatalf("expected manual_adjustment")
	}
}
