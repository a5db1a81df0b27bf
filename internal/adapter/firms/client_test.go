package firms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

const sampleFeed = `country_id,latitude,longitude,brightness,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_t31,frp,daynight
USA,34.05,-118.25,330.1,1.0,1.0,2024-05-01,0612,Terra,MODIS,80,6.1NRT,290.2,60.5,D
USA,36.17,-115.14,320.0,1.0,1.0,2024-05-01,0612,Terra,MODIS,70,6.1NRT,288.0,n/a,D
USA,37.77,-122.41,310.0,1.0,1.0,2024-05-01,0612,Aqua,MODIS,60,6.1NRT,285.0,12.0,N
`

func testClient(baseURL string) *Client {
	return NewClient(testKey, Options{BaseURL: baseURL, Timeout: 5 * time.Second},
		observability.NewUnregisteredMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchDetections_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/country/csv/test-key/MODIS_NRT/USA/1", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).FetchDetections(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, []domain.Detection{
		{Latitude: 34.05, Longitude: -118.25, Intensity: 60.5, AcquisitionDate: "2024-05-01"},
		{Latitude: 37.77, Longitude: -122.41, Intensity: 12.0, AcquisitionDate: "2024-05-01"},
	}, result.Detections)
}

func TestClient_FetchDetections_CustomProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/country/csv/test-key/VIIRS_SNPP_NRT/CAN/3", r.URL.Path)
		_, _ = w.Write([]byte("latitude,longitude,frp,acq_date\n"))
	}))
	defer srv.Close()

	c := NewClient(testKey, Options{BaseURL: srv.URL + "/", Source: "VIIRS_SNPP_NRT", Country: "CAN", Days: 3},
		observability.NewUnregisteredMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := c.FetchDetections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Detections)
}

func TestClient_FetchDetections_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).FetchDetections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Detections)
}

func TestClient_FetchDetections_MissingColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("latitude,longitude,acq_date\n34.05,-118.25,2024-05-01\n"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchDetections(context.Background())
	require.ErrorIs(t, err, domain.ErrMalformed)
	assert.Contains(t, err.Error(), "frp")
}

func TestClient_FetchDetections_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Invalid MAP_KEY."))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchDetections(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_FetchDetections_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.FetchDetections(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
}
