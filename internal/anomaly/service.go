// Package anomaly implements the windowed usage-anomaly detector (C6):
// a single-shot scan over a closed-open time window that flags tenants
// whose consumption exceeds a configured threshold, plus the
// acknowledge/resolve lifecycle operators use to triage what it finds.
package anomaly

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"billingledger/internal/apperror"
	"billingledger/internal/domain"
	"billingledger/internal/store"
	"billingledger/internal/unitofwork"

	"github.com/shopspring/decimal"
)

// DetectionParams configures one detection run. Threshold and Type are
// injected per run — hourly and daily variants are the two
// runtime-supported flavours; PeriodStart/PeriodEnd default per spec §4.5
// when nil.
type DetectionParams struct {
	Threshold   decimal.Decimal
	Type        domain.AnomalyType
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// Summary is Run's return value.
type Summary struct {
	PeriodStart       time.Time
	PeriodEnd         time.Time
	TenantsOverThresh int
	AnomaliesCreated  int
	AnomaliesNotified int
	ElapsedMs         int64
}

// Service wires the detector's collaborators.
type Service struct {
	uow       unitofwork.UnitOfWork
	txs       store.TransactionStore
	anomalies store.AnomalyStore
	notifier  Notifier
	clock     func() time.Time
}

func NewService(uow unitofwork.UnitOfWork, txs store.TransactionStore, anomalies store.AnomalyStore, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{uow: uow, txs: txs, anomalies: anomalies, notifier: notifier, clock: time.Now}
}

// Run performs one detection pass (spec §4.5).
func (s *Service) Run(ctx context.Context, params DetectionParams) (Summary, error) {
	start := s.clock()

	periodEnd := time.Time{}
	if params.PeriodEnd != nil {
		periodEnd = *params.PeriodEnd
	} else {
		periodEnd = s.clock().UTC().Truncate(time.Hour)
	}
	periodStart := time.Time{}
	if params.PeriodStart != nil {
		periodStart = *params.PeriodStart
	} else {
		periodStart = periodEnd.Add(-time.Hour)
	}

	var created []domain.UsageAnomaly
	var tenantsOverThresh int

	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sums, err := s.txs.SumConsumptionByTenant(ctx, tx, periodStart, periodEnd)
		if err != nil {
			return err
		}

		for _, sum := range sums {
			if sum.Sum.LessThanOrEqual(params.Threshold) {
				continue
			}
			tenantsOverThresh++

			exists, err := s.anomalies.ExistsForTenantPeriod(ctx, tx, sum.TenantID, periodStart, periodEnd)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			a := domain.UsageAnomaly{
				TenantID:       sum.TenantID,
				Type:           params.Type,
				Status:         domain.AnomalyDetected,
				ThresholdValue: params.Threshold,
				ActualValue:    sum.Sum,
				PeriodStart:    periodStart,
				PeriodEnd:      periodEnd,
				Description: fmt.Sprintf(
					"tenant %s consumed %s credits against a threshold of %s in [%s, %s)",
					sum.TenantID, sum.Sum.String(), params.Threshold.String(),
					periodStart.Format(time.RFC3339), periodEnd.Format(time.RFC3339),
				),
				DetectedAt: s.clock().UTC(),
			}
			row, err := s.anomalies.Create(ctx, tx, a)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return Summary{}, apperror.Wrap(apperror.DetectionFailed, "anomaly detection run failed", err)
	}

	notified := 0
	for _, a := range created {
		if !s.notifier.SendAnomalyAlert(ctx, a) {
			continue
		}
		now := s.clock().UTC()
		markErr := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return s.anomalies.MarkNotified(ctx, tx, a.ID, now)
		})
		if markErr == nil {
			notified++
		}
	}

	return Summary{
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		TenantsOverThresh: tenantsOverThresh,
		AnomaliesCreated:  len(created),
		AnomaliesNotified: notified,
		ElapsedMs:         time.Since(start).Milliseconds(),
	}, nil
}

// Get returns an anomaly by ID, for callers that must learn its owning
// tenant before scoping a further operation against it (e.g. an operator
// acting across tenants).
func (s *Service) Get(ctx context.Context, id string) (domain.UsageAnomaly, error) {
	var out domain.UsageAnomaly
	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		out, err = s.anomalies.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UsageAnomaly{}, apperror.New(apperror.AnomalyNotFound, "anomaly not found")
		}
		return domain.UsageAnomaly{}, err
	}
	return out, nil
}

// Acknowledge moves an anomaly from DETECTED to ACKNOWLEDGED. tenantID
// scopes the mutation: an id belonging to a different tenant is reported
// as not-found rather than acknowledged.
func (s *Service) Acknowledge(ctx context.Context, tenantID, id string) (domain.UsageAnomaly, error) {
	return s.setStatus(ctx, tenantID, id, domain.AnomalyAcknowledged, "")
}

// Resolve moves an anomaly to RESOLVED or FALSE_POSITIVE, recording who
// closed it out. tenantID scopes the mutation the same way Acknowledge does.
func (s *Service) Resolve(ctx context.Context, tenantID, id, resolvedBy string, falsePositive bool) (domain.UsageAnomaly, error) {
	status := domain.AnomalyResolved
	if falsePositive {
		status = domain.AnomalyFalsePositive
	}
	return s.setStatus(ctx, tenantID, id, status, resolvedBy)
}

func (s *Service) setStatus(ctx context.Context, tenantID, id string, status domain.AnomalyStatus, resolvedBy string) (domain.UsageAnomaly, error) {
	var out domain.UsageAnomaly
	now := s.clock().UTC()
	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		out, err = s.anomalies.UpdateStatus(ctx, tx, tenantID, id, status, resolvedBy, now)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UsageAnomaly{}, apperror.New(apperror.AnomalyNotFound, "anomaly not found")
		}
		return domain.UsageAnomaly{}, err
	}
	return out, nil
}
