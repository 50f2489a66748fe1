package worker

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the run-level instruments every worker loop updates. One
// set is shared across all three control loops (C6-C8), labelled by
// component.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunFailures     *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	Discrepancies   prometheus.Gauge
}

// NewMetrics registers the worker instruments against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registerer across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billingledger_worker_runs_total",
			Help: "Total worker iterations, by component.",
		}, []string{"component"}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billingledger_worker_run_failures_total",
			Help: "Worker iterations that returned an error, by component.",
		}, []string{"component"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billingledger_worker_run_duration_seconds",
			Help:    "Wall-clock duration of a worker iteration, by component.",
			Buckets: prometheus.DefBuckets,
		}, []string{"component"}),
		Discrepancies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billingledger_reconciler_discrepancies",
			Help: "Discrepancies found by the most recent reconciliation run.",
		}),
	}
	reg.MustRegister(m.RunsTotal, m.RunFailures, m.RunDuration, m.Discrepancies)
	return m
}
