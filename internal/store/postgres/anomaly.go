package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"
)

// AnomalyRepo implements store.AnomalyStore.
type AnomalyRepo struct{}

func scanAnomaly(row rowScanner) (domain.UsageAnomaly, error) {
	var a domain.UsageAnomaly
	var description, metadata, resolvedBy sql.NullString
	var notifiedAt, resolvedAt sql.NullTime
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.Type, &a.Status, &a.ThresholdValue, &a.ActualValue,
		&a.PeriodStart, &a.PeriodEnd, &description, &metadata, &a.DetectedAt,
		&notifiedAt, &resolvedAt, &resolvedBy,
	); err != nil {
		return domain.UsageAnomaly{}, err
	}
	a.Description = description.String
	a.Metadata = metadata.String
	a.ResolvedBy = resolvedBy.String
	if notifiedAt.Valid {
		a.NotifiedAt = &notifiedAt.Time
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return a, nil
}

const anomalyColumns = `
id, tenant_id, anomaly_type, status, threshold_value, actual_value,
period_start, period_end, description, metadata, detected_at, notified_at,
resolved_at, resolved_by
`

func (AnomalyRepo) ExistsForTenantPeriod(ctx context.Context, tx *sql.Tx, tenantID string, start, end time.Time) (bool, error) {
	const q = `
SELECT exists(
  SELECT 1 FROM usage_anomalies
  WHERE tenant_id = $1 AND period_start = $2 AND period_end = $3
)
`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, tenantID, start, end).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (AnomalyRepo) Create(ctx context.Context, tx *sql.Tx, a domain.UsageAnomaly) (domain.UsageAnomaly, error) {
	q := `
INSERT INTO usage_anomalies (` + anomalyColumns + `)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, NULL, NULL)
RETURNING ` + anomalyColumns
	return scanAnomaly(tx.QueryRowContext(ctx, q,
		a.TenantID, a.Type, a.Status, a.ThresholdValue, a.ActualValue,
		a.PeriodStart, a.PeriodEnd, nullIfEmpty(a.Description), nullIfEmpty(a.Metadata), a.DetectedAt,
	))
}

func (AnomalyRepo) MarkNotified(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	const q = `UPDATE usage_anomalies SET notified_at = $2 WHERE id = $1`
	res, err := tx.ExecContext(ctx, q, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (AnomalyRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, tenantID, id string, status domain.AnomalyStatus, resolvedBy string, now time.Time) (domain.UsageAnomaly, error) {
	q := `
UPDATE usage_anomalies
SET status = $3,
    resolved_at = CASE WHEN $3 IN ('RESOLVED', 'FALSE_POSITIVE') THEN $4 ELSE resolved_at END,
    resolved_by = CASE WHEN $3 IN ('RESOLVED', 'FALSE_POSITIVE') THEN $5 ELSE resolved_by END
WHERE id = $1 AND tenant_id = $2
RETURNING ` + anomalyColumns
	a, err := scanAnomaly(tx.QueryRowContext(ctx, q, id, tenantID, status, now, nullIfEmpty(resolvedBy)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UsageAnomaly{}, store.ErrNotFound
		}
		return domain.UsageAnomaly{}, err
	}
	return a, nil
}

func (AnomalyRepo) GetByID(ctx context.Context, db store.DBTX, id string) (domain.UsageAnomaly, error) {
	q := `SELECT ` + anomalyColumns + ` FROM usage_anomalies WHERE id = $1`
	a, err := scanAnomaly(db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UsageAnomaly{}, store.ErrNotFound
		}
		return domain.UsageAnomaly{}, err
	}
	return a, nil
}

func (AnomalyRepo) GetByTenant(ctx context.Context, db store.DBTX, tenantID string, limit, offset int) (store.Page[domain.UsageAnomaly], error) {
	const countQ = `SELECT count(*) FROM usage_anomalies WHERE tenant_id = $1`
	var total int
	if err := db.QueryRowContext(ctx, countQ, tenantID).Scan(&total); err != nil {
		return store.Page[domain.UsageAnomaly]{}, err
	}

	q := `SELECT ` + anomalyColumns + ` FROM usage_anomalies WHERE tenant_id = $1 ORDER BY detected_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := db.QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return store.Page[domain.UsageAnomaly]{}, err
	}
	defer rows.Close()

	var items []domain.UsageAnomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return store.Page[domain.UsageAnomaly]{}, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return store.Page[domain.UsageAnomaly]{}, err
	}
	return store.Page[domain.UsageAnomaly]{Items: items, Total: total}, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
