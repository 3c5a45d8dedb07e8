// Package scheduler reloads the dataset on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/temperature-map/internal/pipeline"
)

// Reloader runs one dataset load.
type Reloader interface {
	Load(ctx context.Context) (*pipeline.Dataset, error)
}

// Scheduler periodically reloads the dataset. The first run happens one
// interval after Start; the initial load is the caller's job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	reloader  Reloader
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. timeout bounds each scheduled load.
func New(reloader Reloader, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		reloader:  reloader,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the reload job. A non-positive interval schedules nothing.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduled reloads disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.reload)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduled reloads enabled", "interval", s.interval)
	return nil
}

func (s *Scheduler) reload() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ds, err := s.reloader.Load(ctx)
	if err != nil {
		// Load logs the failure and keeps serving the previous dataset.
		return
	}
	s.logger.Debug("scheduled reload complete", "version", ds.Version)
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
