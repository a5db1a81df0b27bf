// Package app wires the service's collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/wildfire-alert-service/internal/adapter/firms"
	"github.com/couchcryptid/wildfire-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-alert-service/internal/adapter/opencage"
	"github.com/couchcryptid/wildfire-alert-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-alert-service/internal/config"
	"github.com/couchcryptid/wildfire-alert-service/internal/pipeline"
)

// SecretStore resolves named parameters such as API keys.
type SecretStore interface {
	Get(name string) (string, error)
}

// App holds the wired collaborators shared by the service and the one-shot run.
type App struct {
	Store     *sqlite.Store
	Publisher *kafka.Publisher
	Notifier  *kafka.Notifier
	Monitor   *pipeline.Monitor
	Onboarder *pipeline.Onboarder
}

// New opens the database, resolves provider keys and builds the monitor and
// onboarder. Missing secrets are fatal.
func New(ctx context.Context, cfg *config.Config, secrets SecretStore, deps Deps) (*App, error) {
	firmsKey, err := secrets.Get(cfg.FIRMSKeyParam)
	if err != nil {
		return nil, fmt.Errorf("firms api key: %w", err)
	}
	openCageKey, err := secrets.Get(cfg.OpenCageKeyParam)
	if err != nil {
		return nil, fmt.Errorf("opencage api key: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DatabasePath, nil)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	publisher := kafka.NewPublisher(cfg, deps.Logger)
	notifier := kafka.NewNotifier(store, publisher)

	feed := firms.NewClient(firmsKey, firms.Options{
		BaseURL: cfg.FIRMSBaseURL,
		Source:  cfg.FIRMSSource,
		Country: cfg.FIRMSCountry,
		Days:    cfg.FIRMSDays,
		Timeout: cfg.FIRMSTimeout,
	}, deps.Metrics, deps.Logger)

	client := opencage.NewClient(openCageKey, cfg.OpenCageBaseURL, cfg.OpenCageTimeout, cfg.OpenCageRate, deps.Metrics, deps.Logger)
	geocoder := opencage.NewCachedGeocoder(client, cfg.OpenCageCacheSize, deps.Metrics)

	monitor := pipeline.NewMonitor(store, feed, geocoder, store, notifier, pipeline.MonitorOptions{
		RadiusMiles:  cfg.RadiusMiles,
		MinIntensity: cfg.MinIntensity,
		GridSize:     cfg.GridSize,
		Concurrency:  cfg.Concurrency,
	}, nil, deps.Logger, deps.Metrics)

	deps.Logger.Info("collaborators ready",
		"database", cfg.DatabasePath,
		"alert_topic", cfg.KafkaAlertTopic,
		"firms_source", cfg.FIRMSSource,
		"geocode_cache_size", cfg.OpenCageCacheSize,
	)

	return &App{
		Store:     store,
		Publisher: publisher,
		Notifier:  notifier,
		Monitor:   monitor,
		Onboarder: pipeline.NewOnboarder(notifier, store, deps.Logger),
	}, nil
}

// Close releases the publisher and the database.
func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Store.Close())
}
