package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
)

// --- mocks ---

type mockLister struct {
	subs []domain.Subscriber
	err  error
}

func (m *mockLister) ListSubscribers(_ context.Context) ([]domain.Subscriber, error) {
	return m.subs, m.err
}

type mockFeed struct {
	result domain.ParseResult
	err    error
	calls  atomic.Int64
}

func (m *mockFeed) FetchDetections(_ context.Context) (domain.ParseResult, error) {
	m.calls.Add(1)
	return m.result, m.err
}

type mockGeocoder struct {
	mu     sync.Mutex
	coords map[string]domain.Coordinates
	errs   map[string]error
	calls  []string
}

func (m *mockGeocoder) Resolve(_ context.Context, areaCode string) (domain.Coordinates, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, areaCode)
	if err, ok := m.errs[areaCode]; ok {
		return domain.Coordinates{}, false, err
	}
	c, ok := m.coords[areaCode]
	return c, ok, nil
}

func (m *mockGeocoder) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockObjects struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (m *mockObjects) PutObject(_ context.Context, key string, body []byte, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = make(map[string][]byte)
	}
	m.puts[key] = body
	return nil
}

func (m *mockObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

type published struct {
	handle, subject, body string
}

type mockPublisher struct {
	mu   sync.Mutex
	sent []published
	errs map[string]error
}

func (m *mockPublisher) Publish(_ context.Context, handle, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[handle]; ok {
		return err
	}
	m.sent = append(m.sent, published{handle, subject, body})
	return nil
}

func (m *mockPublisher) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.sent...)
}

func newTestMetrics() *observability.Metrics {
	return observability.NewUnregisteredMetrics()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
