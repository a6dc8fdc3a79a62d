package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/logistics-alert/internal/logger"
)

// Job runs once a day at At ("HH:MM", local time).
type Job struct {
	Name string
	At   string
	Run  func(ctx context.Context)
}

type entry struct {
	job      Job
	schedule cron.Schedule
	next     time.Time
}

// Scheduler is a cooperative polling loop: it wakes every interval and runs
// the due jobs one after another in registration order. Jobs never overlap.
type Scheduler struct {
	interval time.Duration
	entries  []*entry
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New parses every job's trigger time and computes its first run.
func New(interval time.Duration, jobs []Job, opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: poll interval must be positive")
	}

	s := &Scheduler{
		interval: interval,
		now:      time.Now,
		log:      logger.Component("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.now()
	for _, job := range jobs {
		sched, err := Daily(job.At)
		if err != nil {
			return nil, fmt.Errorf("scheduler: job %s: %w", job.Name, err)
		}
		s.entries = append(s.entries, &entry{job: job, schedule: sched, next: sched.Next(now)})
	}
	return s, nil
}

// Daily converts "HH:MM" to a standard cron schedule firing once a day.
func Daily(at string) (cron.Schedule, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q, want HH:MM", at)
	}
	return cron.ParseStandard(fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()))
}

// Run polls until ctx is cancelled. A job in progress is not interrupted by
// the loop itself; cancellation is seen between polls.
func (s *Scheduler) Run(ctx context.Context) {
	for _, e := range s.entries {
		s.log.Info("job scheduled", "job", e.job.Name, "at", e.job.At, "next_run", e.next.Format(time.RFC3339))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunPending(ctx, s.now())
		}
	}
}

// RunPending runs every job due at now and reschedules it. It returns the
// number of jobs run.
func (s *Scheduler) RunPending(ctx context.Context, now time.Time) int {
	ran := 0
	for _, e := range s.entries {
		if now.Before(e.next) {
			continue
		}
		if ctx.Err() != nil {
			return ran
		}
		s.log.Info("running job", "job", e.job.Name)
		e.job.Run(ctx)
		ran++
		e.next = e.schedule.Next(now)
		s.log.Debug("job rescheduled", "job", e.job.Name, "next_run", e.next.Format(time.RFC3339))
	}
	return ran
}

// NextRun reports when the named job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	for _, e := range s.entries {
		if e.job.Name == name {
			return e.next, true
		}
	}
	return time.Time{}, false
}
