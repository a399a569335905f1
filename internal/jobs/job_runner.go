package jobs

import (
	"context"
	"time"

	"adboard-backend/internal/config"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Reposts  service.RepostService
	Ads      service.AdService
	Accounts service.AccountService
	// Sessions is set only when carts live in process memory.
	Sessions Sweeper
}

// Sweeper drops expired staged carts.
type Sweeper interface {
	Sweep() int
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		timeout:  5 * time.Minute,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	start := time.Now()
	logger.Debug("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Debug("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
}

// PublishDueReposts runs one publication scheduler tick.
func (jr *JobRunner) PublishDueReposts() {
	jr.runWithRecovery("PublishDueReposts", func(ctx context.Context) error {
		report, err := jr.services.Reposts.PublishDue(ctx)
		if err != nil {
			return err
		}
		if report.Contended {
			logger.Debug("Reposts are being published by another scheduler")
			return nil
		}
		if report.Failed > report.Abandoned {
			logger.Warn("Some reposts failed and will be retried next tick", "failed", report.Failed-report.Abandoned, "due", report.Due)
		}
		if report.Abandoned > 0 {
			logger.Warn("Some repost runs were consumed after repeated failures", "abandoned", report.Abandoned)
		}
		return nil
	})
}

// ExpireStaleAds deactivates ads past their lifetime.
func (jr *JobRunner) ExpireStaleAds() {
	jr.runWithRecovery("ExpireStaleAds", func(ctx context.Context) error {
		n, err := jr.services.Ads.ExpireStale(ctx)
		if err != nil {
			return err
		}
		logger.Info("Expired stale ads", "count", n)
		return nil
	})
}

// LiftExpiredBans clears temporary bans whose end time has passed.
func (jr *JobRunner) LiftExpiredBans() {
	jr.runWithRecovery("LiftExpiredBans", func(ctx context.Context) error {
		n, err := jr.services.Accounts.LiftExpiredBans(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("Lifted expired bans", "count", n)
		}
		return nil
	})
}

// SweepSessions drops expired in-memory carts. It is a no-op for Redis,
// which expires keys itself.
func (jr *JobRunner) SweepSessions() {
	if jr.services.Sessions == nil {
		return
	}
	jr.runWithRecovery("SweepSessions", func(ctx context.Context) error {
		if n := jr.services.Sessions.Sweep(); n > 0 {
			logger.Debug("Swept expired carts", "count", n)
		}
		return nil
	})
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.LiftExpiredBans()
	jr.ExpireStaleAds()
	jr.PublishDueReposts()
	jr.SweepSessions()
}
