package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	grpcapi "adboard-backend/internal/api/grpc"
	httpapi "adboard-backend/internal/api/http"
	"adboard-backend/internal/app"
	"adboard-backend/internal/config"
	"adboard-backend/internal/jobs"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/scheduler"
	"adboard-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := pflag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := pflag.Bool("with-scheduler", false, "Run the cron jobs in this process (implied by the memory driver); ticks are serialized with cmd/cronjob through a database lock")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting marketplace backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())

	a, err := app.Build(cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer a.Close()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	if cfg.JWT.IntegrationKeyHash == "" {
		logger.Warn("Integration key hash not set; no tokens can be issued")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// HTTP API
	handler := httpapi.NewHandler(httpapi.Services{
		Accounts:  a.Accounts,
		Ledger:    a.Ledger,
		Channels:  a.Channels,
		Ads:       a.Ads,
		Sales:     a.Sales,
		Funding:   a.Funding,
		Placement: a.Placement,
		Staff:     a.Staff,
	}, tokenManager, cfg.JWT.IntegrationKeyHash)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// gRPC health, reflection and account queries
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer, healthServer := grpcapi.NewServer(tokenManager, grpcapi.NewAccountServer(a.Ledger, a.Sales))
	var pinger grpcapi.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	go grpcapi.MonitorHealth(ctx, healthServer, pinger, 30*time.Second)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	// In-process scheduler
	var cronScheduler *scheduler.Scheduler
	if *withScheduler || cfg.Database.Driver == "memory" {
		services := &jobs.Services{Reposts: a.Reposts, Ads: a.Ads, Accounts: a.Accounts}
		if a.Sweep != nil {
			services.Sessions = a.Sweep
		}
		cronScheduler, err = scheduler.NewScheduler(jobs.NewJobRunner(services, cfg))
		if err != nil {
			log.Fatalf("Failed to register jobs: %v", err)
		}
		cronScheduler.Start()
	}

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	logger.Info("Server stopped. Goodbye!")
}
