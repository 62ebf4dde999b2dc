package capture

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReaperInterval is the sweep cadence of the timeout reaper.
const DefaultReaperInterval = 1 * time.Minute

// Reaper is the low-frequency safety net that force-fails sessions
// exceeding the absolute age ceiling, independent of the phase clock.
type Reaper struct {
	manager  *Manager
	interval time.Duration
	stopCh   chan struct{}
}

// NewReaper creates a reaper over the given manager. A non-positive
// interval falls back to the default.
func NewReaper(m *Manager, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &Reaper{
		manager:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop (blocks until the context is canceled or
// Stop is called).
func (r *Reaper) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("session timeout reaper started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("session timeout reaper stopping")
			return ctx.Err()
		case <-r.stopCh:
			slog.Info("session timeout reaper stopped")
			return nil
		case <-ticker.C:
			if n := r.manager.ExpireSessions(); n > 0 {
				slog.Warn("expired stuck capture sessions", "count", n)
			}
		}
	}
}

// Stop stops the sweep loop.
func (r *Reaper) Stop() {
	close(r.stopCh)
}
