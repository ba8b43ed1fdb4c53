package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/spaces/internal/events"
)

// Reconciler periodically asks the control loop to check for state drift.
// The pass itself runs on the loop goroutine.
type Reconciler struct {
	interval time.Duration
	sink     events.Sink
	logger   *slog.Logger
}

// NewReconciler creates a reconciler posting to sink every interval. A
// non-positive interval falls back to 10s.
func NewReconciler(interval time.Duration, sink events.Sink, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		sink:     sink,
		logger:   logger.With("component", "reconciler"),
	}
}

// Interval returns the tick period.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Run starts the reconciliation ticker. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.ReconcileNow()
		}
	}
}

// ReconcileNow requests an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	if !r.sink.Post(events.Event{Kind: events.Reconcile}) {
		r.logger.Debug("reconcile request dropped")
	}
}
