// Package retention prunes stored log events past their maximum age on a
// cron schedule.
package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tracehub/internal/utils"
)

// Pruner deletes events recorded before a cutoff and reports how many rows
// were removed.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls the retention job.
type Config struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string
	// MaxAge is how long events are kept. Zero or negative disables
	// pruning entirely.
	MaxAge time.Duration
	// Timeout bounds a single prune run.
	Timeout time.Duration
}

// Job runs the prune on its schedule until stopped.
type Job struct {
	pruner Pruner
	cfg    Config
	logger *utils.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewJob creates a retention job. Call Start to schedule it.
func NewJob(pruner Pruner, cfg Config, logger *utils.Logger) *Job {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Job{
		pruner: pruner,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the job. Disabled (MaxAge <= 0) jobs start nothing.
func (j *Job) Start() error {
	if j.cfg.MaxAge <= 0 {
		j.logger.Info("retention disabled")
		return nil
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.cfg.Schedule, func() { j.Run(context.Background()) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("retention scheduled", "schedule", j.cfg.Schedule, "max_age", j.cfg.MaxAge)
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *Job) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.cron = nil
}

// Run executes one prune immediately. Exposed for tests and for manual
// invocation alongside the schedule.
func (j *Job) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	cutoff := j.now().Add(-j.cfg.MaxAge)
	deleted, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("retention prune failed", "error", err)
		return
	}
	j.logger.Info("retention prune complete", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
}
