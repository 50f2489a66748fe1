package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"billingledger/internal/domain"
	"billingledger/internal/store"

	"github.com/google/uuid"
)

// AnomalyRepo implements store.AnomalyStore against a *Store.
type AnomalyRepo struct{ S *Store }

func (r AnomalyRepo) ExistsForTenantPeriod(ctx context.Context, _ *sql.Tx, tenantID string, start, end time.Time) (bool, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, a := range r.S.anomalies {
		if a.TenantID == tenantID && a.PeriodStart.Equal(start) && a.PeriodEnd.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (r AnomalyRepo) Create(ctx context.Context, _ *sql.Tx, a domain.UsageAnomaly) (domain.UsageAnomaly, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	a.ID = uuid.NewString()
	r.S.anomalies = append(r.S.anomalies, a)
	return a, nil
}

func (r AnomalyRepo) MarkNotified(ctx context.Context, _ *sql.Tx, id string, now time.Time) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for i, a := range r.S.anomalies {
		if a.ID == id {
			r.S.anomalies[i].NotifiedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

func (r AnomalyRepo) UpdateStatus(ctx context.Context, _ *sql.Tx, tenantID, id string, status domain.AnomalyStatus, resolvedBy string, now time.Time) (domain.UsageAnomaly, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for i, a := range r.S.anomalies {
		if a.ID == id && a.TenantID == tenantID {
			r.S.anomalies[i].Status = status
			if status == domain.AnomalyResolved || status == domain.AnomalyFalsePositive {
				r.S.anomalies[i].ResolvedAt = &now
				r.S.anomalies[i].ResolvedBy = resolvedBy
			}
			return r.S.anomalies[i], nil
		}
	}
	return domain.UsageAnomaly{}, store.ErrNotFound
}

func (r AnomalyRepo) GetByID(ctx context.Context, _ store.DBTX, id string) (domain.UsageAnomaly, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, a := range r.S.anomalies {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.UsageAnomaly{}, store.ErrNotFound
}

func (r AnomalyRepo) GetByTenant(ctx context.Context, _ store.DBTX, tenantID string, limit, offset int) (store.Page[domain.UsageAnomaly], error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()

	var matched []domain.UsageAnomaly
	for _, a := range r.S.anomalies {
		if a.TenantID == tenantID {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].DetectedAt.After(matched[j].DetectedAt) })

	total := len(matched)
	if offset >= total {
		return store.Page[domain.UsageAnomaly]{Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return store.Page[domain.UsageAnomaly]{Items: matched[offset:end], Total: total}, nil
}
