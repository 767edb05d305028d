// Package main is the entry point for the precipwatch daemon.
//
// It loads configuration, connects to PostgreSQL, wires the provider stack,
// check cycle, retention job, and management API, then runs until SIGINT or
// SIGTERM triggers a graceful drain.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/jackc/pgx/v5/pgxpool"

	"precipwatch/internal/alerts"
	"precipwatch/internal/api"
	"precipwatch/internal/checker"
	"precipwatch/internal/config"
	"precipwatch/internal/db"
	"precipwatch/internal/notify"
	"precipwatch/internal/providers"
	"precipwatch/internal/types"
)

// shutdownGrace bounds how long in-flight work may run during shutdown.
const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	slogger := newLogger(cfg.LogLevel)
	logger := types.NewSlogLogger(slogger)
	logger.Info("precipwatch starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"provider", cfg.Provider.Active,
		"port", cfg.Server.Port,
	)

	zone, err := time.LoadLocation(cfg.Provider.Timezone)
	if err != nil {
		return fmt.Errorf("loading forecast timezone %q: %w", cfg.Provider.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database pool.
	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	clock := types.RealClock{}

	// Repositories.
	cityRepo := db.NewCityRepository(pool)
	alertRepo := db.NewAlertRepository(pool)
	historyRepo := db.NewHistoryRepository(pool)
	snapshotRepo := db.NewSnapshotRepository(pool)

	// Provider stack.
	resolver := providers.NewResolver(cfg.Provider, zone)
	httpClient := &http.Client{Timeout: cfg.Provider.Timeout}
	providerClient := providers.NewClient(
		httpClient,
		"weather-provider",
		providers.DefaultRetryPolicy(),
		"PrecipWatch/"+cfg.Build.Version,
	)
	fetcher := providers.NewFetcher(resolver, providerClient, clock, logger)

	// Notification path.
	var notifier notify.Notifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Webhook, logger)
	} else {
		notifier = notify.NewNopNotifier(logger)
	}

	var metrics notify.Metrics = notify.NopMetrics{}
	if cfg.Observability.EnableMetrics {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Observability.AWSRegion))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		metrics = notify.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			logger,
		)
	}

	// Check cycle and jobs.
	gate := alerts.NewGate(historyRepo, clock, logger)
	cycle := checker.NewCycle(
		alertRepo,
		fetcher,
		gate,
		notifier,
		metrics,
		snapshotRepo,
		clock,
		logger,
		cfg.Checker.Concurrency,
	)
	retention := checker.NewRetention(cfg.Retention, historyRepo, snapshotRepo, clock, logger)

	scheduler, err := checker.NewScheduler(cfg.Checker, cycle, retention, logger)
	if err != nil {
		return fmt.Errorf("configuring scheduler: %w", err)
	}
	scheduler.Start()

	if cfg.Checker.RunOnStart {
		go cycle.Run(context.Background())
	}

	// Management API.
	server := api.NewServer(
		cfg.Server,
		cfg.Build,
		cityRepo,
		alertRepo,
		historyRepo,
		snapshotRepo,
		cycle,
		zone,
		clock,
		logger,
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("management api failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(drainCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := scheduler.Stop(drainCtx); err != nil {
		logger.Error("scheduler drain timed out", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}
