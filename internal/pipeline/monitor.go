package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
)

// SubscriberLister returns every registered subscriber.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// FeedSource downloads the current detection feed.
type FeedSource interface {
	FetchDetections(ctx context.Context) (domain.ParseResult, error)
}

// ObjectStore persists filtered detection snapshots.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// Publisher delivers an alert to a notification channel.
type Publisher interface {
	Publish(ctx context.Context, handle, subject, body string) error
}

// State is a step of a subscriber's pipeline.
type State string

const (
	StateSkipped         State = "skipped"
	StateResolveLocation State = "resolve_location"
	StateFetchFeed       State = "fetch_feed"
	StateFilter          State = "filter"
	StatePersist         State = "persist"
	StateCluster         State = "cluster"
	StateNotify          State = "notify"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// SubscriberResult is the outcome of one subscriber's pipeline. FailedAt
// holds the step that failed when State is StateFailed.
type SubscriberResult struct {
	Contact  string
	AreaCode string
	State    State
	FailedAt State
	Matches  int
	Clusters int
	Notified bool
	Err      error
}

// RunStatus summarizes a whole run.
type RunStatus string

const (
	StatusCompleted     RunStatus = "completed"
	StatusNoSubscribers RunStatus = "no_subscribers"
	StatusFailed        RunStatus = "failed"
)

// RunReport describes a finished run.
type RunReport struct {
	RunID      string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Notified   int
	Skipped    int
	Failed     int
	Dropped    int
	Results    []SubscriberResult
}

// MonitorOptions tunes a run. Zero values take the package defaults, except
// MinIntensity where zero is a meaningful threshold.
type MonitorOptions struct {
	RadiusMiles  float64
	MinIntensity float64
	GridSize     float64
	Concurrency  int
	// PerSubscriberFeed fetches the feed once per subscriber instead of once
	// per run.
	PerSubscriberFeed bool
}

// DefaultMonitorOptions returns the daily run settings.
func DefaultMonitorOptions() MonitorOptions {
	return MonitorOptions{
		RadiusMiles:  domain.DefaultRadiusMiles,
		MinIntensity: domain.DefaultMinIntensity,
		GridSize:     domain.DefaultGridSize,
		Concurrency:  4,
	}
}

// Monitor runs the per-subscriber detect, filter, cluster and notify pipeline.
type Monitor struct {
	subscribers SubscriberLister
	feed        FeedSource
	geocoder    domain.Geocoder
	objects     ObjectStore
	publisher   Publisher
	opts        MonitorOptions
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewMonitor creates a Monitor over its collaborators. A nil clock uses real time.
func NewMonitor(
	subscribers SubscriberLister,
	feed FeedSource,
	geocoder domain.Geocoder,
	objects ObjectStore,
	publisher Publisher,
	opts MonitorOptions,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Monitor {
	if opts.RadiusMiles <= 0 {
		opts.RadiusMiles = domain.DefaultRadiusMiles
	}
	if opts.MinIntensity < 0 {
		opts.MinIntensity = domain.DefaultMinIntensity
	}
	if opts.GridSize <= 0 {
		opts.GridSize = domain.DefaultGridSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		subscribers: subscribers,
		feed:        feed,
		geocoder:    geocoder,
		objects:     objects,
		publisher:   publisher,
		opts:        opts,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run processes every subscriber once. Listing subscribers or fetching the
// shared feed failing fails the whole run; any other failure is confined to
// the subscriber it happened for. Cancelling ctx stops dispatching further
// subscribers, and work already persisted or notified stands.
func (m *Monitor) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString(), StartedAt: m.clock.Now().UTC()}
	logger := m.logger.With("run_id", report.RunID)

	finish := func(status RunStatus, err error) (RunReport, error) {
		report.Status = status
		report.FinishedAt = m.clock.Now().UTC()
		m.metrics.RunsTotal.WithLabelValues(string(status)).Inc()
		m.metrics.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		return report, err
	}

	subs, err := m.subscribers.ListSubscribers(ctx)
	if err != nil {
		logger.Error("list subscribers failed", "error", err)
		return finish(StatusFailed, fmt.Errorf("list subscribers: %w", err))
	}
	if len(subs) == 0 {
		logger.Info("no subscriptions to process")
		return finish(StatusNoSubscribers, nil)
	}

	var shared *domain.ParseResult
	if !m.opts.PerSubscriberFeed && anyConfigured(subs) {
		feed, err := m.feed.FetchDetections(ctx)
		if err != nil {
			logger.Error("fetch feed failed", "error", err)
			return finish(StatusFailed, fmt.Errorf("fetch feed: %w", err))
		}
		shared = &feed
		report.Dropped = feed.Dropped
	}

	logger.Info("run started", "subscribers", len(subs), "concurrency", m.opts.Concurrency)

	results := make([]SubscriberResult, len(subs))
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for i, sub := range subs {
		if ctx.Err() != nil {
			for j := i; j < len(subs); j++ {
				results[j] = SubscriberResult{
					Contact:  subs[j].Contact,
					AreaCode: subs[j].AreaCode,
					State:    StateFailed,
					Err:      ctx.Err(),
				}
			}
			break
		}
		g.Go(func() error {
			results[i] = m.process(ctx, logger, sub, shared)
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	for _, r := range results {
		switch {
		case r.State == StateSkipped:
			report.Skipped++
		case r.State == StateFailed:
			report.Failed++
		case r.Notified:
			report.Notified++
		}
	}
	report.Processed = len(results) - report.Skipped

	logger.Info("run completed",
		"processed", report.Processed,
		"notified", report.Notified,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	if err := ctx.Err(); err != nil {
		return finish(StatusFailed, fmt.Errorf("run interrupted: %w", err))
	}
	return finish(StatusCompleted, nil)
}

// process walks one subscriber through the pipeline. It never returns an
// error; failures are reported in the result.
func (m *Monitor) process(ctx context.Context, logger *slog.Logger, sub domain.Subscriber, shared *domain.ParseResult) SubscriberResult {
	res := SubscriberResult{Contact: sub.Contact, AreaCode: sub.AreaCode}
	logger = logger.With("contact", sub.Contact, "area_code", sub.AreaCode)

	if !sub.HasChannel() {
		logger.Info("subscriber has no channel, skipping")
		res.State = StateSkipped
		m.metrics.SubscribersProcessed.WithLabelValues(string(StateSkipped)).Inc()
		return res
	}

	fail := func(at State, err error) SubscriberResult {
		logger.Error("subscriber pipeline failed", "state", at, "error", err)
		res.State = StateFailed
		res.FailedAt = at
		res.Err = err
		m.metrics.SubscribersProcessed.WithLabelValues(string(StateFailed)).Inc()
		return res
	}
	done := func() SubscriberResult {
		res.State = StateDone
		m.metrics.SubscribersProcessed.WithLabelValues(string(StateDone)).Inc()
		return res
	}

	if err := sub.Validate(); err != nil {
		return fail(StateResolveLocation, err)
	}
	center, ok, err := m.geocoder.Resolve(ctx, sub.AreaCode)
	if err != nil {
		return fail(StateResolveLocation, fmt.Errorf("resolve %s: %w", sub.AreaCode, err))
	}
	if !ok {
		logger.Warn("could not resolve area code")
		return done()
	}

	feed := shared
	if feed == nil {
		fetched, err := m.feed.FetchDetections(ctx)
		if err != nil {
			return fail(StateFetchFeed, fmt.Errorf("fetch feed: %w", err))
		}
		feed = &fetched
	}

	matches := domain.Filter(feed.Detections, center, m.opts.RadiusMiles, m.opts.MinIntensity)
	res.Matches = len(matches)
	m.metrics.DetectionsMatched.Observe(float64(len(matches)))
	if len(matches) == 0 {
		logger.Info("no fires detected in area")
		return done()
	}

	body, err := domain.EncodeCSV(matches)
	if err != nil {
		return fail(StatePersist, err)
	}
	key := domain.SnapshotKey(sub.Contact, sub.AreaCode, domain.DateOf(m.clock.Now()))
	if err := m.objects.PutObject(ctx, key, body, domain.SnapshotContentType); err != nil {
		return fail(StatePersist, fmt.Errorf("store snapshot %s: %w", key, err))
	}

	clusters := domain.Cluster(matches, m.opts.GridSize)
	res.Clusters = clusters.Len()
	m.metrics.ClustersBuilt.Observe(float64(clusters.Len()))

	alert := domain.FormatAlert(clusters)
	if err := m.publisher.Publish(ctx, sub.ChannelHandle, alert.Subject, alert.Body); err != nil {
		return fail(StateNotify, fmt.Errorf("publish alert: %w", err))
	}
	res.Notified = true
	m.metrics.NotificationsPublished.Inc()

	logger.Info("alert sent", "matches", res.Matches, "clusters", res.Clusters, "snapshot", key)
	return done()
}

func anyConfigured(subs []domain.Subscriber) bool {
	for _, s := range subs {
		if s.HasChannel() {
			return true
		}
	}
	return false
}
