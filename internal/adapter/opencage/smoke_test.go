//go:build opencage

package opencage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real OpenCage API and require OPENCAGE_API_KEY.
// Run with: go test -tags=opencage ./internal/adapter/opencage/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("OPENCAGE_API_KEY")
	if key == "" {
		t.Fatal("OPENCAGE_API_KEY must be set to run smoke tests")
	}
	return NewClient(key, DefaultBaseURL, 10*time.Second, 1, observability.NewUnregisteredMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Resolve(t *testing.T) {
	c := smokeClient(t)

	coords, ok, err := c.Resolve(context.Background(), "94103")
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 37.77, coords.Lat, 0.2, "lat should be near San Francisco")
	assert.InDelta(t, -122.41, coords.Lon, 0.2, "lon should be near San Francisco")
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	cached := NewCachedGeocoder(smokeClient(t), 10, observability.NewUnregisteredMetrics())

	c1, ok, err := cached.Resolve(context.Background(), "10001")
	require.NoError(t, err)
	require.True(t, ok)

	c2, ok, err := cached.Resolve(context.Background(), "10001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c1, c2)
}
