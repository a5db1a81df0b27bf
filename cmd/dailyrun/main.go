// Command dailyrun performs a single monitoring run and exits. It is meant to
// be started by an external scheduler such as cron. The exit status is
// non-zero when the run as a whole fails.
//
// Usage:
//
//	go run ./cmd/dailyrun -timeout 10m
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/wildfire-alert-service/internal/adapter/secrets"
	"github.com/couchcryptid/wildfire-alert-service/internal/app"
	"github.com/couchcryptid/wildfire-alert-service/internal/config"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
	"github.com/couchcryptid/wildfire-alert-service/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	timeout := flag.Duration("timeout", 15*time.Minute, "hard deadline for the whole run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewUnregisteredMetrics() // nothing scrapes a one-shot process

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, secrets.NewEnvStore(), app.Deps{Logger: logger, Metrics: metrics})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	report, err := a.Monitor.Run(ctx)
	if err != nil {
		logger.Error("run failed", "run_id", report.RunID, "error", err)
		return 1
	}

	if report.Status == pipeline.StatusNoSubscribers {
		logger.Info("No subscriptions to process")
		return 0
	}
	logger.Info("Daily check completed",
		"run_id", report.RunID,
		"processed", report.Processed,
		"notified", report.Notified,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return 0
}
