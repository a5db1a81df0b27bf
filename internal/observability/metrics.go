package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wildfire_alerts"

// Metrics holds the Prometheus counters, histograms, and gauges for the alert service.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec // labels: status={completed,no_subscribers,failed}
	RunDuration      prometheus.Histogram
	SchedulerRunning prometheus.Gauge

	SubscribersProcessed *prometheus.CounterVec // labels: outcome={done,skipped,failed}

	// Feed and clustering metrics.
	DetectionsFetched      prometheus.Counter
	DetectionsDropped      prometheus.Counter
	DetectionsMatched      prometheus.Histogram
	ClustersBuilt          prometheus.Histogram
	NotificationsPublished prometheus.Counter
	FeedRequests           *prometheus.CounterVec // labels: outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewUnregisteredMetrics creates Metrics that are not registered with the
// default registry. One-shot commands and tests use it; repeated calls never
// hit "already registered" panics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Monitoring runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete monitoring run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the run scheduler is active, 0 when shut down.",
		}),
		SubscribersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_processed_total",
			Help:      "Subscribers handled by monitoring runs, by outcome.",
		}, []string{"outcome"}),
		DetectionsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_fetched_total",
			Help:      "Detections parsed from the fire feed.",
		}),
		DetectionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_dropped_total",
			Help:      "Feed rows dropped because a numeric field was unparseable.",
		}),
		DetectionsMatched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detections_matched",
			Help:      "Detections remaining after the geo filter, per subscriber.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		ClustersBuilt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clusters_built",
			Help:      "Grid clusters per notified subscriber.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		NotificationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Alerts published to notification channels.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "FIRMS feed requests by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "OpenCage API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.SchedulerRunning,
		m.SubscribersProcessed,
		m.DetectionsFetched,
		m.DetectionsDropped,
		m.DetectionsMatched,
		m.ClustersBuilt,
		m.NotificationsPublished,
		m.FeedRequests,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	}
}
