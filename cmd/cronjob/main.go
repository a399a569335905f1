package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"adboard-backend/internal/app"
	"adboard-backend/internal/config"
	"adboard-backend/internal/jobs"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := pflag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := pflag.String("run-once", "", "Run a specific job once and exit (e.g., 'publish-due-reposts', 'all')")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting cronjob runner...", "log_level", cfg.Log.Level)

	if cfg.Database.Driver == "memory" {
		logger.Warn("The memory driver shares no state with the server; run the server with --with-scheduler instead")
	}

	a, err := app.Build(cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer a.Close()

	services := &jobs.Services{Reposts: a.Reposts, Ads: a.Ads, Accounts: a.Accounts}
	if a.Sweep != nil {
		services.Sessions = a.Sweep
	}
	jobRunner := jobs.NewJobRunner(services, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			a.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and reports whether the name was known
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "publish-due-reposts":
		jobRunner.PublishDueReposts()
	case "expire-stale-ads":
		jobRunner.ExpireStaleAds()
	case "lift-expired-bans":
		jobRunner.LiftExpiredBans()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - publish-due-reposts\n")
		fmt.Printf("  - expire-stale-ads\n")
		fmt.Printf("  - lift-expired-bans\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
