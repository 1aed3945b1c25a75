package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
)

// Runner schedules the queue and processing jobs on cron expressions.
type Runner struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *zap.Logger
}

func NewRunner(jobs *Jobs, logger *zap.Logger) *Runner {
	return &Runner{
		cron:   cron.New(),
		jobs:   jobs,
		logger: logger,
	}
}

func (r *Runner) Start(ctx context.Context, cfg config.JobsConfig) error {
	if _, err := r.cron.AddFunc(cfg.QueueSchedule, func() {
		if err := r.jobs.QueueGames(ctx); err != nil {
			r.logger.Error("Queue job failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid queue schedule %q: %w", cfg.QueueSchedule, err)
	}

	if _, err := r.cron.AddFunc(cfg.ProcessSchedule, func() {
		if err := r.jobs.ProcessQueue(ctx); err != nil {
			r.logger.Error("Process job failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid process schedule %q: %w", cfg.ProcessSchedule, err)
	}

	r.cron.Start()
	r.logger.Info("Job runner started",
		zap.String("queue_schedule", cfg.QueueSchedule),
		zap.String("process_schedule", cfg.ProcessSchedule),
	)
	return nil
}

// Stop halts the scheduler and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("Job runner stopped")
}
