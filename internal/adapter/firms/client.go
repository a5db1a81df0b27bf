// Package firms fetches active-fire detections from the NASA FIRMS area API.
package firms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
)

// Defaults matching the daily run: MODIS near-real-time, contiguous US, last day.
const (
	DefaultBaseURL = "https://firms.modaps.eosdis.nasa.gov"
	DefaultSource  = "MODIS_NRT"
	DefaultCountry = "USA"
	DefaultDays    = 1
)

// Options selects which FIRMS product is fetched.
type Options struct {
	BaseURL string
	Source  string
	Country string
	Days    int
	Timeout time.Duration
}

// Client downloads the country CSV feed.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	source     string
	country    string
	days       int
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FIRMS client. Zero option fields take the defaults.
func NewClient(apiKey string, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	if opts.Country == "" {
		opts.Country = DefaultCountry
	}
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		source:     opts.Source,
		country:    opts.Country,
		days:       opts.Days,
		// FIRMS caps transactions per key over a 10 minute window.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchDetections downloads and parses the configured feed. Transport
// failures and non-200 responses wrap domain.ErrUnavailable; a feed missing
// required columns wraps domain.ErrMalformed.
func (c *Client) FetchDetections(ctx context.Context) (domain.ParseResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ParseResult{}, fmt.Errorf("feed rate limit: %w", err)
	}

	result, err := c.fetch(ctx)
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return domain.ParseResult{}, err
	}
	c.metrics.FeedRequests.WithLabelValues("success").Inc()
	c.metrics.DetectionsFetched.Add(float64(len(result.Detections)))
	c.metrics.DetectionsDropped.Add(float64(result.Dropped))

	if len(result.Detections) == 0 {
		c.logger.Warn("fire feed returned no detections", "source", c.source, "country", c.country)
	}
	if result.Dropped > 0 {
		c.logger.Info("dropped unparseable feed rows", "dropped", result.Dropped)
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context) (domain.ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL(), nil)
	if err != nil {
		return domain.ParseResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ParseResult{}, fmt.Errorf("%w: feed request: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ParseResult{}, fmt.Errorf("%w: firms API error: status %d: %s", domain.ErrUnavailable, resp.StatusCode, body)
	}

	result, err := domain.ParseFeed(resp.Body)
	if err != nil {
		return domain.ParseResult{}, fmt.Errorf("parse feed: %w", err)
	}
	return result, nil
}

func (c *Client) feedURL() string {
	return fmt.Sprintf("%s/api/country/csv/%s/%s/%s/%d",
		c.baseURL, url.PathEscape(c.apiKey), c.source, c.country, c.days)
}
