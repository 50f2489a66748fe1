package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRunner_RunOnce_RecordsMetricsOnSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	calls := 0

	r := NewRunner("test", func(ctx context.Context) error {
		calls++
		return nil
	}, m, nil)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected fn called once, got %d", calls)
	}
}

func TestRunner_RunOnce_RecordsFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := NewRunner("test", func(ctx context.Context) error {
		return errors.New("boom")
	}, m, nil)

	if err := r.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error to propagate from RunOnce")
	}
}

func TestGated_DoesNotFireOutsideFirstThreeDays(t *testing.T) {
	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	calls := 0
	r := NewRunner("allocator", func(ctx context.Context) error {
		calls++
		return nil
	}, nil, nil)

	g := NewGated(r, func() time.Time { return now })
	if err := g.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no run outside the first three days of the month, got %d calls", calls)
	}
}

func TestGated_FiresOnceWithinFirstThreeDays(t *testing.T) {
	now := time.Date(2026, 7, 2, 1, 0, 0, 0, time.UTC)
	calls := 0
	r := NewRunner("allocator", func(ctx context.Context) error {
		calls++
		return nil
	}, nil, nil)

	g := NewGated(r, func() time.Time { return now })
	if err := g.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 run within the first three days, got %d", calls)
	}

	// Same month again, still within the window: should not re-fire.
	if err := g.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no re-fire later in the same processed month, got %d calls", calls)
	}
}

func TestGated_RecoversAfterMissedFirstDay(t *testing.T) {
	// A process down on day 1 still gets the gate on day 3: the
	// three-day window is the resilience mechanism, not a single
	// fixed run day.
	now := time.Date(2026, 7, 3, 23, 0, 0, 0, time.UTC)
	calls := 0
	r := NewRunner("allocator", func(ctx context.Context) error {
		calls++
		return nil
	}, nil, nil)

	g := NewGated(r, func() time.Time { return now })
	if err := g.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the gate to still fire on day 3, got %d calls", calls)
	}
}
