// Package scheduler triggers periodic monitoring sweeps. On-demand sweeps
// stay available through the HTTP trigger regardless of the schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/trailhaven/ecowatch/internal/monitor"
)

// Sweeper runs one monitoring sweep.
type Sweeper interface {
	RunSweep(ctx context.Context, destinationID string) monitor.Report
}

// Scheduler periodically sweeps all active destinations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a scheduler. An interval of zero disables scheduling.
func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		interval:  interval,
		logger:    logger,
	}
}

// Start registers the periodic job and starts the scheduler asynchronously.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("periodic sweeps disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.logger.Info("scheduled sweep starting")
		report := s.sweeper.RunSweep(context.Background(), "")
		s.logger.Info("scheduled sweep finished",
			"processed", report.Processed,
			"failed", report.Failed,
			"alerts", report.AlertsGenerated,
		)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels all future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
