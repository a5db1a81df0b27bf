// Package opencage resolves postal codes to coordinates with the OpenCage
// geocoding API.
package opencage

import (
	"context"
	"encoding/json"
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

// DefaultBaseURL is the public OpenCage API host.
const DefaultBaseURL = "https://api.opencagedata.com"

// Client implements domain.Geocoder using the OpenCage forward geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenCage client. requestsPerSecond <= 0 disables rate
// limiting.
func NewClient(apiKey, baseURL string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// Resolve looks up the first US match for areaCode. A response without
// results or geometry is reported as ok=false with no error.
func (c *Client) Resolve(ctx context.Context, areaCode string) (domain.Coordinates, bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Coordinates{}, false, fmt.Errorf("geocode rate limit: %w", err)
		}
	}

	params := url.Values{
		"q":              {areaCode},
		"key":            {c.apiKey},
		"countrycode":    {"us"},
		"limit":          {"1"},
		"no_annotations": {"1"},
	}
	u := c.baseURL + "/geocode/v1/json?" + params.Encode()

	start := time.Now()
	coords, ok, err := c.doRequest(ctx, u)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	case !ok:
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("no geocoding match", "area_code", areaCode)
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return coords, ok, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinates, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("%w: geocode request: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinates{}, false, fmt.Errorf("%w: opencage API error: status %d: %s", domain.ErrUnavailable, resp.StatusCode, body)
	}

	var ocResp response
	if err := json.NewDecoder(resp.Body).Decode(&ocResp); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("decode response: %w", err)
	}

	if len(ocResp.Results) == 0 {
		return domain.Coordinates{}, false, nil
	}
	g := ocResp.Results[0].Geometry
	if g == nil || g.Lat == nil || g.Lng == nil {
		return domain.Coordinates{}, false, nil
	}
	return domain.Coordinates{Lat: *g.Lat, Lon: *g.Lng}, true, nil
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Geometry  *geometry `json:"geometry"`
	Formatted string    `json:"formatted"`
}

type geometry struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}
