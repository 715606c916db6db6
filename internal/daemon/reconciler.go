package daemon

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/platform"
)

// UIRunner runs fn on the UI context and waits for it.
type UIRunner interface {
	Do(ctx context.Context, fn func() error) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// Timeout bounds one pass waiting on the UI context.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Reconciler periodically re-checks monitor layout and window placement. It
// catches hot-plugs whose RandR notification was missed and windows that were
// moved behind the daemon's back.
type Reconciler struct {
	interval   time.Duration
	timeout    time.Duration
	ui         UIRunner
	monitors   *monitor.Registry
	reposition func()
	logger     *slog.Logger

	// last is only touched on the UI context.
	last []platform.Display
}

// NewReconciler creates a new reconciler. reposition runs on the UI context
// when the monitor layout is unchanged.
func NewReconciler(cfg ReconcilerConfig, ui UIRunner, monitors *monitor.Registry, reposition func()) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:   interval,
		timeout:    timeout,
		ui:         ui,
		monitors:   monitors,
		reposition: reposition,
		logger:     logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
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
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.ui.Do(ctx, func() error {
		r.pass()
		return nil
	})
	if err != nil {
		r.logger.Warn("reconciler: pass failed", "error", err)
	}
}

func (r *Reconciler) pass() {
	current, err := r.monitors.Snapshot()
	if err != nil {
		r.logger.Error("reconciler: failed to enumerate monitors", "error", err)
		return
	}

	first := r.last == nil
	changed := !slices.Equal(current, r.last)
	r.last = current
	if current == nil {
		r.last = []platform.Display{}
	}

	if changed && !first {
		r.logger.Info("reconciler: monitor layout drifted", "monitors", len(current))
		r.monitors.Notify()
		return
	}
	if r.reposition != nil {
		r.reposition()
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}
