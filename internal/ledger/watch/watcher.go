// Package watch owns the subscription to signing agent changes. Instead of ad
// hoc listeners, a single watcher polls the agent and invalidates the cached
// write-capable handle when the user switches accounts or networks, dropping
// the process back to read-only resolution.
package watch

import (
	"context"
	"log/slog"
	"time"
)

// HandleInvalidator is the slice of the provider manager the watcher drives.
type HandleInvalidator interface {
	InvalidateIfChanged(ctx context.Context) (bool, error)
}

// Watcher periodically re-checks the signing agent.
type Watcher struct {
	manager  HandleInvalidator
	interval time.Duration
	logger   *slog.Logger
}

// Option configures the Watcher.
type Option func(*Watcher)

// WithLogger configures a logger for the watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher that checks the agent every interval.
func New(manager HandleInvalidator, interval time.Duration, opts ...Option) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	w := &Watcher{manager: manager, interval: interval}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled, checking the agent on every tick.
// Check errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			invalidated, err := w.manager.InvalidateIfChanged(ctx)
			if err != nil && w.logger != nil {
				w.logger.Warn("agent check failed", "error", err)
			}
			if invalidated && w.logger != nil {
				w.logger.Info("write-capable handle invalidated by agent change")
			}
		}
	}
}
