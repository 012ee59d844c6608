// Package schedule wraps gocron with the two job shapes the bot needs:
// one-shot delayed actions with a cancellable handle and daily jobs.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Handle identifies a scheduled one-shot action.
type Handle interface {
	ID() string
	FireAt() time.Time
	// Cancel stops the action if it has not started. Cancelling twice or after
	// the action ran is a no-op.
	Cancel() error
}

// Scheduler owns a gocron scheduler.
type Scheduler struct {
	s      gocron.Scheduler
	logger *slog.Logger
	now    func() time.Time
}

// New builds a scheduler using loc for daily jobs.
func New(loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		s:      s,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
	}, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.s.Start()
	s.logger.Info("scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

// After runs fn once when delay elapses. The job is removed from the
// scheduler after it runs.
func (s *Scheduler) After(name string, delay time.Duration, fn func()) (Handle, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("schedule %s: delay must be positive, got %s", name, delay)
	}
	at := s.now().Add(delay)
	job, err := s.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", name, err)
	}
	return &oneShot{id: job.ID(), at: at, s: s.s}, nil
}

// Daily runs fn every day at hour:minute in the scheduler location.
func (s *Scheduler) Daily(name string, hour, minute uint, fn func()) error {
	_, err := s.s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(fn),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("schedule daily %s: %w", name, err)
	}
	s.logger.Info("daily job registered", "name", name, "hour", hour, "minute", minute)
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.s.Jobs())
}

type oneShot struct {
	id uuid.UUID
	at time.Time
	s  gocron.Scheduler
}

func (o *oneShot) ID() string        { return o.id.String() }
func (o *oneShot) FireAt() time.Time { return o.at }

func (o *oneShot) Cancel() error {
	err := o.s.RemoveJob(o.id)
	if err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return fmt.Errorf("cancel job %s: %w", o.id, err)
	}
	return nil
}
