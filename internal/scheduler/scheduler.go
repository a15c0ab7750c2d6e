// Package scheduler drives the engine clock.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrNotRunning is reported by Check before Run has started.
var ErrNotRunning = errors.New("scheduler not running")

// Ticker is advanced once per interval.
type Ticker interface {
	Tick(ctx context.Context)
}

type Scheduler struct {
	target   Ticker
	interval time.Duration
	logger   *slog.Logger
	// last is the unix nano time of the latest tick, or of Run starting.
	last atomic.Int64
}

// New returns a scheduler that ticks target every interval. A non-positive
// interval defaults to one second.
func New(target Ticker, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{target: target, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled. It always returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.last.Store(time.Now().UnixNano())
	defer s.last.Store(0)
	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-t.C:
			s.target.Tick(ctx)
			s.last.Store(time.Now().UnixNano())
		}
	}
}

// Check fails when the loop is not running or has missed three ticks.
func (s *Scheduler) Check(context.Context) error {
	last := s.last.Load()
	if last == 0 {
		return ErrNotRunning
	}
	if lag := time.Since(time.Unix(0, last)); lag > 3*s.interval {
		return fmt.Errorf("scheduler stalled: last tick %s ago", lag.Round(time.Millisecond))
	}
	return nil
}
