package status

import (
	"context"
	"log/slog"
	"time"
)

// Loop drives the aggregator in the background: a periodic ticker plus a
// demand channel for immediate cycles (e.g. right after a launch action).
type Loop struct {
	agg      *Aggregator
	interval time.Duration
	kick     chan struct{}
}

func NewLoop(agg *Aggregator, interval time.Duration) *Loop {
	return &Loop{
		agg:      agg,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate refresh. Never blocks; a pending kick absorbs
// further ones.
func (l *Loop) Kick() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Run refreshes until ctx cancels. The first cycle runs immediately so the
// process has a snapshot before the first tick. An in-flight probe that
// cannot be cancelled completes on its own goroutine; its cycle's result is
// discarded by the context check inside Refresh.
func (l *Loop) Run(ctx context.Context) error {
	if _, err := l.agg.Refresh(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := l.agg.Refresh(ctx); err != nil && ctx.Err() == nil {
				statusLog.Warn("refresh_failed", slog.String("error", err.Error()))
			}
		case <-l.kick:
			if _, err := l.agg.Demand(ctx); err != nil && ctx.Err() == nil {
				statusLog.Warn("demand_refresh_failed", slog.String("error", err.Error()))
			}
		}
	}
}
