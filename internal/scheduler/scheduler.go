// Package scheduler drives the weekly send loop.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked at every scheduled occurrence.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Weekly blocks until the configured weekday and local time of day, runs
// the tick, then waits for the following week.
type Weekly struct {
	opts   Options
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New constructs a Weekly instance.
func New(opts Options, logger zerolog.Logger) *Weekly {
	return &Weekly{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Run blocks, invoking the tick function at each weekly occurrence until
// ctx is cancelled. Tick failures are logged and do not stop the loop.
func (w *Weekly) Run(ctx context.Context, tick TickFunc) error {
	for {
		next := w.nextOccurrence(w.now())
		w.logger.Info().Time("next_run", next).Msg("waiting for next scheduled run")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		w.logger.Info().Time("run", next).Msg("executing scheduled run")
		if err := tick(ctx, next); err != nil {
			w.logger.Error().Err(err).Time("run", next).Msg("scheduled run failed")
		}
	}
}

// nextOccurrence returns the first instant strictly after now that lands on
// the configured weekday at the configured time of day, in now's location.
func (w *Weekly) nextOccurrence(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), w.opts.Hour, w.opts.Minute, 0, 0, now.Location())
	days := (int(w.opts.Weekday) - int(now.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, days)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
