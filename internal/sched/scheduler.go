// Package sched wraps gocron behind the small scheduling surface the
// monitor needs: repeating jobs for the accumulator and one-shot jobs for
// the day-boundary rollover.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler wraps a gocron scheduler for managing the monitor's periodic
// and one-shot tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance. It does not run jobs
// until Start is called.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Debug("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Debug("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery registers task to run every interval.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (uuid.UUID, error) {
	if interval <= 0 {
		return uuid.Nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create periodic job %q: %w", name, err)
	}
	return job.ID(), nil
}

// ScheduleAt registers task to run once at the given time.
func (s *Scheduler) ScheduleAt(name string, at time.Time, task func()) (uuid.UUID, error) {
	if at.IsZero() {
		return uuid.Nil, fmt.Errorf("one-shot time must be set")
	}
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create one-shot job %q: %w", name, err)
	}
	return job.ID(), nil
}

// Remove cancels a scheduled job. Removing an unknown job is not an error.
func (s *Scheduler) Remove(id uuid.UUID) {
	if err := s.scheduler.RemoveJob(id); err != nil {
		slog.Debug("Remove scheduled job", "job_id", id.String(), "error", err)
	}
}

// Len returns the number of currently scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.scheduler.Jobs())
}
