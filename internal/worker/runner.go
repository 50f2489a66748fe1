// Package worker generalizes the three control loops (anomaly detector,
// monthly allocator, reconciler) into one runner shape: run_once/
// run_forever, uniform metrics, uniform error handling. Per spec §4.8, a
// worker never terminates its own outer loop except on cancellation —
// an iteration's error is logged and the loop continues.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// RunOnceFunc is one worker iteration.
type RunOnceFunc func(ctx context.Context) error

// Runner drives a single control loop.
type Runner struct {
	Component string
	Fn        RunOnceFunc
	Metrics   *Metrics
	Log       *slog.Logger
}

func NewRunner(component string, fn RunOnceFunc, metrics *Metrics, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{Component: component, Fn: fn, Metrics: metrics, Log: log}
}

// RunOnce executes one iteration, recording duration and outcome.
func (r *Runner) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := r.Fn(ctx)
	elapsed := time.Since(start)

	if r.Metrics != nil {
		r.Metrics.RunsTotal.WithLabelValues(r.Component).Inc()
		r.Metrics.RunDuration.WithLabelValues(r.Component).Observe(elapsed.Seconds())
		if err != nil {
			r.Metrics.RunFailures.WithLabelValues(r.Component).Inc()
		}
	}
	if err != nil {
		r.Log.Error("worker iteration failed", "component", r.Component, "err", err)
	}
	return err
}

// RunForever drives RunOnce on a fixed interval until ctx is cancelled.
func (r *Runner) RunForever(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			r.Log.Info("worker loop stopping", "component", r.Component)
			return
		case <-ticker.C:
		}
	}
}

// monthKey identifies a calendar month, used as the in-memory
// already-processed guard.
type monthKey struct {
	Year  int
	Month time.Month
}

// Gated wraps a Runner with the monthly allocator's gate (spec §4.8):
// run_once only fires when today is within the first three days of a
// month and the current month hasn't been processed yet by this
// instance. The three-day window, not a single fixed day, is the
// resilience mechanism: a process down during the scheduled hour on
// day one still gets two more days to catch the month before it's
// silently skipped.
type Gated struct {
	runner             *Runner
	lastProcessedMonth monthKey
	clock              func() time.Time
}

// NewGated builds a Gated runner. clock defaults to time.Now.
func NewGated(runner *Runner, clock func() time.Time) *Gated {
	if clock == nil {
		clock = time.Now
	}
	return &Gated{runner: runner, clock: clock}
}

// due reports whether today falls within the first three days of the
// month and this month hasn't been processed yet.
func (g *Gated) due(now time.Time) bool {
	if now.Day() > 3 {
		return false
	}
	key := monthKey{Year: now.Year(), Month: now.Month()}
	return key != g.lastProcessedMonth
}

// RunOnce runs the wrapped Runner only if the gate is due.
func (g *Gated) RunOnce(ctx context.Context) error {
	now := g.clock()
	if !g.due(now) {
		return nil
	}
	err := g.runner.RunOnce(ctx)
	if err == nil {
		g.lastProcessedMonth = monthKey{Year: now.Year(), Month: now.Month()}
	}
	return err
}

// RunForever polls the gate at pollInterval, firing the wrapped Runner
// whenever due() reports true.
func (g *Gated) RunForever(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	_ = g.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = g.RunOnce(ctx)
		}
	}
}
