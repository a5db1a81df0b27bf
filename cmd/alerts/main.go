// Command alerts runs the wildfire alert service: scheduled monitoring runs
// plus the subscription and on-demand run HTTP endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/wildfire-alert-service/internal/adapter/http"
	"github.com/couchcryptid/wildfire-alert-service/internal/adapter/secrets"
	"github.com/couchcryptid/wildfire-alert-service/internal/app"
	"github.com/couchcryptid/wildfire-alert-service/internal/config"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
	"github.com/couchcryptid/wildfire-alert-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, secrets.NewEnvStore(), app.Deps{Logger: logger, Metrics: metrics})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	scheduler := pipeline.NewScheduler(a.Monitor, cfg.RunInterval, cfg.RunOnStart, nil, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, scheduler, a.Onboarder, scheduler, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start run scheduler.
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}
	if err := a.Close(); err != nil {
		logger.Error("close error", "error", err)
	}

	logger.Info("shutdown complete")
}
