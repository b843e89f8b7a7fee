// Package scheduler runs the pending domain sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/verification"
)

// JobName names the sweep job.
const JobName = "verify-pending-domains"

// DefaultSpec runs the sweep at second 0 of every minute.
const DefaultSpec = "0 * * * * *"

// Sweeper runs one sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (verification.SweepReport, error)
}

// Scheduler owns the gocron scheduler and the sweep job.
type Scheduler struct {
	core    gocron.Scheduler
	job     gocron.Job
	sweeper Sweeper
	timeout time.Duration
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler that runs sweeper on the six-field cron spec.
// Each run gets timeout; a run still in progress when the next tick fires
// makes that tick skip.
func New(sweeper Sweeper, spec string, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	core, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		core:    core,
		sweeper: sweeper,
		timeout: timeout,
		log:     logger.Named("scheduler"),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.job, err = core.NewJob(
		gocron.CronJob(spec, true),
		gocron.NewTask(s.run),
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = core.Shutdown()
		return nil, fmt.Errorf("schedule %s: %w", JobName, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.log.Error("sweep failed", zap.String("job", JobName), zap.Error(err))
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.core.Start()
	if next, err := s.job.NextRun(); err == nil {
		s.log.Info("scheduler started", zap.String("job", JobName), zap.Time("next_run", next))
	}
}

// RunNow triggers an immediate sweep.
func (s *Scheduler) RunNow() error {
	return s.job.RunNow()
}

// Shutdown cancels a running sweep and stops the scheduler.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.core.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.log.Info("scheduler stopped")
	return nil
}
