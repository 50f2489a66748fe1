package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AnomalyType string

const (
	AnomalyHourlyThreshold AnomalyType = "HOURLY_THRESHOLD"
	AnomalyDailyThreshold  AnomalyType = "DAILY_THRESHOLD"
	AnomalySpike           AnomalyType = "SPIKE"
	AnomalyPattern         AnomalyType = "PATTERN"
)

type AnomalyStatus string

const (
	AnomalyDetected      AnomalyStatus = "DETECTED"
	AnomalyAcknowledged  AnomalyStatus = "ACKNOWLEDGED"
	AnomalyResolved      AnomalyStatus = "RESOLVED"
	AnomalyFalsePositive AnomalyStatus = "FALSE_POSITIVE"
)

// UsageAnomaly is a detection record produced by the anomaly detector.
//
// Uniqueness contract: at most one anomaly per (TenantID, PeriodStart,
// PeriodEnd) — enforced by the detector's pre-check, not by a schema
// constraint. After creation only Status, NotifiedAt, ResolvedAt and
// ResolvedBy change.
type UsageAnomaly struct {
	ID             string          `json:"id" db:"id"`
	TenantID       string          `json:"tenant_id" db:"tenant_id"`
	Type           AnomalyType     `json:"anomaly_type" db:"anomaly_type"`
	Status         AnomalyStatus   `json:"status" db:"status"`
	ThresholdValue decimal.Decimal `json:"threshold_value" db:"threshold_value"`
	ActualValue    decimal.Decimal `json:"actual_value" db:"actual_value"`
	PeriodStart    time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd      time.Time       `json:"period_end" db:"period_end"`
	Description    string          `json:"description" db:"description"`
	Metadata       string          `json:"metadata,omitempty" db:"metadata"`
	DetectedAt     time.Time       `json:"detected_at" db:"detected_at"`
	NotifiedAt     *time.Time      `json:"notified_at,omitempty" db:"notified_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy     string          `json:"resolved_by,omitempty" db:"resolved_by"`
}
