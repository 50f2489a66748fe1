package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogManualAdjustment records a billing_ops-initiated ledger.Adjust call,
// the one mutation path that bypasses the normal consume/refund/allocate
// protocol and can move a balance by an arbitrary signed amount.
func (s *Service) LogManualAdjustment(ctx context.Context, tenantID, actorUserID, actorRole, ip, ledgerID, transactionID, message, metadata string) error {
	return s.Append(ctx, Event{
		TenantID:      tenantID,
		Type:          EventTypeManualAdjustment,
		ActorUserID:   actorUserID,
		ActorRole:     actorRole,
		IPAddress:     ip,
		LedgerID:      ledgerID,
		TransactionID: transactionID,
		Message:       message,
		Metadata:      metadata,
	})
}

// LogAnomalyTriage records an operator acknowledging or resolving a usage
// anomaly (the supplemented Acknowledge/Resolve operations).
func (s *Service) LogAnomalyTriage(ctx context.Context, tenantID, actorUserID, actorRole, ip, anomalyID, message string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeAnomalyTriage,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		AnomalyID:   anomalyID,
		Message:     message,
	})
}
