package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
)

const testHandle = "arn:wildfire:alerts:wildfire-alerts-94103"

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeRegistry struct {
	handles map[string]string
	members map[string][]string
	err     error
}

func (r *fakeRegistry) EnsureChannel(_ context.Context, areaCode string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if h, ok := r.handles[areaCode]; ok {
		return h, nil
	}
	h := domain.ChannelHandleFor(areaCode)
	r.handles[areaCode] = h
	return h, nil
}

func (r *fakeRegistry) Subscribe(_ context.Context, contact, handle string) error {
	if r.err != nil {
		return r.err
	}
	r.members[handle] = append(r.members[handle], contact)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freezeClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })
	return now
}

func TestSerializeToMessage(t *testing.T) {
	now := freezeClock(t)
	n := domain.NewNotification(testHandle, domain.AlertSubject, "body")

	msg, err := serializeToMessage(n)
	require.NoError(t, err)

	assert.Equal(t, []byte(testHandle), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "channel", msg.Headers[0].Key)
	assert.Equal(t, []byte(testHandle), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, n, decoded)
}

func TestPublisher_Publish(t *testing.T) {
	freezeClock(t)
	w := &fakeWriter{}
	p := &Publisher{writer: w, logger: discardLogger()}

	require.NoError(t, p.Publish(context.Background(), testHandle, domain.AlertSubject, "🔥 Wildfire Alert!"))

	require.Len(t, w.msgs, 1)
	assert.Contains(t, string(w.msgs[0].Value), `"subject":"🔥 Wildfire Alert"`)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Publisher{writer: w, logger: discardLogger()}

	err := p.Publish(context.Background(), testHandle, domain.AlertSubject, "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), testHandle)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNotifier(t *testing.T) {
	freezeClock(t)
	ctx := context.Background()
	reg := &fakeRegistry{handles: map[string]string{}, members: map[string][]string{}}
	w := &fakeWriter{}
	n := NewNotifier(reg, &Publisher{writer: w, logger: discardLogger()})

	h, err := n.EnsureChannel(ctx, "94103")
	require.NoError(t, err)
	assert.Equal(t, testHandle, h)

	require.NoError(t, n.Subscribe(ctx, "a@example.com", h))
	assert.Equal(t, []string{"a@example.com"}, reg.members[h])

	require.NoError(t, n.Publish(ctx, h, domain.AlertSubject, "body"))
	require.Len(t, w.msgs, 1, "one message per channel, not per member")
	assert.Equal(t, h, string(w.msgs[0].Key))
}

func TestNotifier_RegistryError(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("db locked")}
	n := NewNotifier(reg, &Publisher{writer: &fakeWriter{}, logger: discardLogger()})

	_, err := n.EnsureChannel(context.Background(), "94103")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure channel")

	err = n.Subscribe(context.Background(), "a@example.com", testHandle)
	require.Error(t, err)
}
