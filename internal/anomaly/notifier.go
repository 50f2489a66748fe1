package anomaly

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"billingledger/internal/domain"
)

// Notifier is the notification collaborator: a single operation the core
// only needs a boolean success flag from. Implementations may fan out to
// as many channels as they like.
type Notifier interface {
	SendAnomalyAlert(ctx context.Context, a domain.UsageAnomaly) bool
}

// WebhookNotifier posts a JSON payload to a single configured URL. This is
// a best-effort collaborator — one synchronous POST bounded by the
// client's timeout, no retry policy, no delivery guarantee — so a plain
// http.Client is sufficient; nothing in the pack pulls in a retry/backoff
// HTTP library for a single unconditional POST.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

type webhookPayload struct {
	TenantID       string `json:"tenant_id"`
	AnomalyType    string `json:"anomaly_type"`
	ThresholdValue string `json:"threshold_value"`
	ActualValue    string `json:"actual_value"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	Description    string `json:"description"`
}

func (n *WebhookNotifier) SendAnomalyAlert(ctx context.Context, a domain.UsageAnomaly) bool {
	if n.URL == "" {
		return false
	}

	body, err := json.Marshal(webhookPayload{
		TenantID:       a.TenantID,
		AnomalyType:    string(a.Type),
		ThresholdValue: a.ThresholdValue.String(),
		ActualValue:    a.ActualValue.String(),
		PeriodStart:    a.PeriodStart.Format(time.RFC3339),
		PeriodEnd:      a.PeriodEnd.Format(time.RFC3339),
		Description:    a.Description,
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// NoopNotifier is used when ANOMALY_NOTIFICATION_WEBHOOK is unset.
type NoopNotifier struct{}

func (NoopNotifier) SendAnomalyAlert(ctx context.Context, a domain.UsageAnomaly) bool { return false }
