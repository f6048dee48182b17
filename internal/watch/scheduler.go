package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
)

// Default intervals for the periodic jobs the serve command registers.
const (
	DefaultRescanInterval    = 5 * time.Minute
	DefaultLinkCheckInterval = time.Hour
)

// Scheduler runs named periodic jobs on top of gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a stopped scheduler. Register jobs, then Start.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Every registers a job that runs task at a fixed interval and returns the
// job ID.
func (s *Scheduler) Every(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("schedule %s job: interval must be positive, got %s", name, interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return "", fmt.Errorf("schedule %s job: %w", name, err)
	}

	slog.Info("Scheduled periodic job",
		slog.String("job", name),
		slog.String("interval", interval.String()),
		slog.String("job_id", job.ID().String()))
	return job.ID().String(), nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("Scheduler shutdown failed", logfields.Error(err))
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
