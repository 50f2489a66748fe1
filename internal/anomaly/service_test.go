package anomaly

import (
	"context"
	"testing"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store/memory"

	"github.com/shopspring/decimal"
)

// spyNotifier records every anomaly it's asked to send and always reports
// success, so tests can assert on MarkNotified without a network call.
type spyNotifier struct {
	sent []domain.UsageAnomaly
}

func (s *spyNotifier) SendAnomalyAlert(ctx context.Context, a domain.UsageAnomaly) bool {
	s.sent = append(s.sent, a)
	return true
}

func newTestService(notifier Notifier) (*Service, *memory.Store) {
	s := memory.New()
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	svc := NewService(memory.UnitOfWork{S: s}, memory.TransactionRepo{S: s}, memory.AnomalyRepo{S: s}, notifier)
	return svc, s
}

func seedConsume(s *memory.Store, tenantID, ledgerID string, amount decimal.Decimal, at time.Time) {
	s.SeedTransaction(domain.CreditTransaction{
		TenantID:  tenantID,
		LedgerID:  ledgerID,
		Type:      domain.TransactionConsume,
		Amount:    amount,
		CreatedAt: at,
	})
}

func TestRun_FlagsTenantOverThreshold(t *testing.T) {
	spy := &spyNotifier{}
	svc, s := newTestService(spy)

	start := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	seedConsume(s, "T1", "l1", decimal.NewFromInt(600), start.Add(10*time.Minute))
	seedConsume(s, "T1", "l1", decimal.NewFromInt(500), start.Add(20*time.Minute))
	seedConsume(s, "T2", "l2", decimal.NewFromInt(10), start.Add(15*time.Minute))

	summary, err := svc.Run(context.Background(), DetectionParams{
		Threshold:   decimal.NewFromInt(1000),
		Type:        domain.AnomalyHourlyThreshold,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TenantsOverThresh != 1 {
		t.Fatalf("expected 1 tenant over threshold, got %d", summary.TenantsOverThresh)
	}
	if summary.AnomaliesCreated != 1 {
		t.Fatalf("expected 1 anomaly created, got %d", summary.AnomaliesCreated)
	}
	if summary.AnomaliesNotified != 1 {
		t.Fatalf("expected 1 anomaly notified, got %d", summary.AnomaliesNotified)
	}
	if len(spy.sent) != 1 || spy.sent[0].TenantID != "T1" {
		t.Fatalf("expected notifier called once for T1, got %+v", spy.sent)
	}
}

func TestRun_NoAnomalies_StillSucceeds(t *testing.T) {
	svc, _ := newTestService(nil)

	start := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	summary, err := svc.Run(context.Background(), DetectionParams{
		Threshold:   decimal.NewFromInt(1000),
		Type:        domain.AnomalyHourlyThreshold,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.AnomaliesCreated != 0 {
		t.Fatalf("expected 0 anomalies, got %d", summary.AnomaliesCreated)
	}
}

func TestRun_DedupesAgainstExistingAnomaly(t *testing.T) {
	svc, s := newTestService(nil)

	start := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	seedConsume(s, "T1", "l1", decimal.NewFromInt(2000), start.Add(5*time.Minute))

	params := DetectionParams{
		Threshold:   decimal.NewFromInt(1000),
		Type:        domain.AnomalyHourlyThreshold,
		PeriodStart: &start,
		PeriodEnd:   &end,
	}

	first, err := svc.Run(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.AnomaliesCreated != 1 {
		t.Fatalf("expected 1 anomaly on first run, got %d", first.AnomaliesCreated)
	}

	second, err := svc.Run(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.AnomaliesCreated != 0 {
		t.Fatalf("expected second run over the same window to create nothing, got %d", second.AnomaliesCreated)
	}
}

func TestAcknowledgeThenResolve(t *testing.T) {
	svc, s := newTestService(nil)

	start := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	seedConsume(s, "T1", "l1", decimal.NewFromInt(2000), start.Add(5*time.Minute))

	summary, err := svc.Run(context.Background(), DetectionParams{
		Threshold:   decimal.NewFromInt(1000),
		Type:        domain.AnomalyHourlyThreshold,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil || summary.AnomaliesCreated != 1 {
		t.Fatalf("setup failed: summary=%+v err=%v", summary, err)
	}

	page, err := memory.AnomalyRepo{S: s}.GetByTenant(context.Background(), nil, "T1", 10, 0)
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("expected 1 anomaly row, got %+v err=%v", page, err)
	}
	id := page.Items[0].ID

	acked, err := svc.Acknowledge(context.Background(), "T1", id)
	if err != nil {
		t.Fatalf("unexpected error acknowledging: %v", err)
	}
	if acked.Status != domain.AnomalyAcknowledged {
		t.Fatalf("expected ACKNOWLEDGED, got %s", acked.Status)
	}

	resolved, err := svc.Resolve(context.Background(), "T1", id, "ops@example.com", false)
	if err != nil {
		t.Fatalf("unexpected error resolving: %v", err)
	}
	if resolved.Status != domain.AnomalyResolved {
		t.Fatalf("expected RESOLVED, got %s", resolved.Status)
	}
	if resolved.ResolvedBy != "ops@example.com" {
		t.Fatalf("expected resolved_by recorded, got %q", resolved.ResolvedBy)
	}
}

func TestAcknowledge_WrongTenantReportsNotFound(t *testing.T) {
	svc, s := newTestService(nil)

	start := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	seedConsume(s, "T1", "l1", decimal.NewFromInt(2000), start.Add(5*time.Minute))

	summary, err := svc.Run(context.Background(), DetectionParams{
		Threshold:   decimal.NewFromInt(1000),
		Type:        domain.AnomalyHourlyThreshold,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil || summary.AnomaliesCreated != 1 {
		t.Fatalf("setup failed: summary=%+v err=%v", summary, err)
	}

	page, err := memory.AnomalyRepo{S: s}.GetByTenant(context.Background(), nil, "T1", 10, 0)
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("expected 1 anomaly row, got %+v err=%v", page, err)
	}
	id := page.Items[0].ID

	if _, err := svc.Acknowledge(context.Background(), "T2", id); err == nil {
		t.Fatalf("expected error acknowledging another tenant's anomaly")
	}

	got, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error fetching: %v", err)
	}
	if got.Status != domain.AnomalyDetected {
		t.Fatalf("cross-tenant acknowledge must not have mutated the row, got status %s", got.Status)
	}
}
