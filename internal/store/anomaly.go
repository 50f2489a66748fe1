package store

import (
	"context"
	"database/sql"
	"time"

	"billingledger/internal/domain"
)

// AnomalyStore is the capability interface for the UsageAnomaly table.
type AnomalyStore interface {
	// ExistsForTenantPeriod backs the detector's dedup contract: at most
	// one anomaly per (tenant_id, period_start, period_end).
	ExistsForTenantPeriod(ctx context.Context, tx *sql.Tx, tenantID string, start, end time.Time) (bool, error)

	Create(ctx context.Context, tx *sql.Tx, a domain.UsageAnomaly) (domain.UsageAnomaly, error)

	// MarkNotified stamps notified_at; called only after the
	// notification collaborator reports success.
	MarkNotified(ctx context.Context, tx *sql.Tx, id string, now time.Time) error

	// UpdateStatus changes status (and, for terminal statuses, the
	// resolution stamp); apart from MarkNotified it is the only mutation
	// after creation. It is scoped to tenantID: a row owned by a different tenant is reported
	// as ErrNotFound rather than updated, the same as a missing id.
	// resolvedBy is ignored unless status is RESOLVED or FALSE_POSITIVE.
	UpdateStatus(ctx context.Context, tx *sql.Tx, tenantID, id string, status domain.AnomalyStatus, resolvedBy string, now time.Time) (domain.UsageAnomaly, error)

	GetByID(ctx context.Context, db DBTX, id string) (domain.UsageAnomaly, error)

	GetByTenant(ctx context.Context, db DBTX, tenantID string, limit, offset int) (Page[domain.UsageAnomaly], error)
}
