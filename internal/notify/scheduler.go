package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/logger"
)

// Sweeper runs one reminder sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// Scheduler runs a sweep on startup, again at the next local midnight, and
// every 24 hours after that.
type Scheduler struct {
	sweeper  Sweeper
	clock    clockwork.Clock
	location *time.Location
	logger   *slog.Logger
}

// NewScheduler creates a scheduler. A nil location means time.Local.
func NewScheduler(sweeper Sweeper, clock clockwork.Clock, location *time.Location, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if location == nil {
		location = time.Local
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{sweeper: sweeper, clock: clock, location: location, logger: log}
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	next := NextMidnight(s.clock.Now(), s.location)
	s.logger.Info("reminder scheduler started", "next_run", next)

	for {
		timer := s.clock.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("reminder scheduler stopped")
			return
		case <-timer.Chan():
		}

		s.sweep(ctx)
		next = next.Add(24 * time.Hour)
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.sweeper.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("reminder sweep failed", "error", err)
	}
}
