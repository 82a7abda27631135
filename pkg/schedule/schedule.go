package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler runs named timer jobs on a gocron scheduler in UTC.
type Scheduler struct {
	s   gocron.Scheduler
	log *slog.Logger
}

// New creates and starts a scheduler. gocron's own logging goes to log.
func New(log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "schedule")

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s.Start()

	return &Scheduler{s: s, log: log}, nil
}

// Every runs task every interval until Shutdown. A run that is still going when
// the next one is due is skipped.
func (s *Scheduler) Every(name string, interval time.Duration, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive, got %s", name, interval)
	}

	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	s.log.Debug("Job scheduled", "name", name, "interval", interval)
	return nil
}

// After runs task once, delay from now. A non-positive delay runs it right away.
// The job is removed from the scheduler once it has run.
func (s *Scheduler) After(name string, delay time.Duration, task func()) error {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}

	_, err := s.s.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithEventListeners(
			gocron.AfterJobRuns(s.forget),
			gocron.AfterJobRunsWithError(func(id uuid.UUID, name string, _ error) { s.forget(id, name) }),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	s.log.Debug("Job scheduled", "name", name, "delay", delay)
	return nil
}

// forget drops a finished one-time job. RemoveJob talks to the scheduler
// loop, so it must not run on the listener's goroutine.
func (s *Scheduler) forget(id uuid.UUID, name string) {
	go func() {
		if err := s.s.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			s.log.Debug("Failed to remove finished job", "name", name, "error", err)
		}
	}()
}

// Len reports the number of jobs currently registered.
func (s *Scheduler) Len() int {
	return len(s.s.Jobs())
}

// Shutdown stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Shutdown() error {
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}

	return nil
}
