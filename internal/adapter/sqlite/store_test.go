package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
)

var testNow = time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "alerts.db"), clockwork.NewFakeClockAt(testNow))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStore_MigrateIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestStore_SubscribersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	subs, err := s.ListSubscribers(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	a := domain.Subscriber{Contact: "a@example.com", AreaCode: "94103", ChannelHandle: domain.ChannelHandleFor("94103"), RegisteredOn: "2024-05-01"}
	b := domain.Subscriber{Contact: "b@example.com", AreaCode: "10001", RegisteredOn: "2024-05-01"}
	require.NoError(t, s.SaveSubscriber(ctx, a))
	require.NoError(t, s.SaveSubscriber(ctx, b))

	subs, err = s.ListSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Subscriber{a, b}, subs)
}

func TestStore_SaveSubscriberUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub := domain.Subscriber{Contact: "a@example.com", AreaCode: "94103", RegisteredOn: "2024-04-01"}
	require.NoError(t, s.SaveSubscriber(ctx, sub))

	sub.ChannelHandle = domain.ChannelHandleFor("94103")
	sub.RegisteredOn = "2024-05-01"
	require.NoError(t, s.SaveSubscriber(ctx, sub))

	subs, err := s.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub, subs[0])
}

func TestStore_EnsureChannelIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	h1, err := s.EnsureChannel(ctx, "94103")
	require.NoError(t, err)
	h2, err := s.EnsureChannel(ctx, " 94103 ")
	require.NoError(t, err)
	other, err := s.EnsureChannel(ctx, "10001")
	require.NoError(t, err)

	assert.Equal(t, "arn:wildfire:alerts:wildfire-alerts-94103", h1)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, other)
	require.NoError(t, domain.ValidateChannelHandle(h1))
}

func TestStore_EnsureChannelConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	handles := make([]string, 8)
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.EnsureChannel(ctx, "94103")
			assert.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
}

func TestStore_EnsureChannelRejectsInvalidArea(t *testing.T) {
	_, err := newTestStore(t).EnsureChannel(context.Background(), "94-103")
	require.ErrorIs(t, err, domain.ErrInvalidAreaCode)
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	h, err := s.EnsureChannel(ctx, "94103")
	require.NoError(t, err)

	require.NoError(t, s.Subscribe(ctx, "a@example.com", h))
	require.NoError(t, s.Subscribe(ctx, "b@example.com", h))
	require.NoError(t, s.Subscribe(ctx, "a@example.com", h))

	members, err := s.ChannelMembers(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, members)
}

func TestStore_SubscribeUnknownChannel(t *testing.T) {
	err := newTestStore(t).Subscribe(context.Background(), "a@example.com", domain.ChannelHandleFor("99999"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Objects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := domain.SnapshotKey("a@example.com", "94103", "2024-05-01")

	_, err := s.GetObject(ctx, key)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.PutObject(ctx, key, []byte("latitude,longitude,frp,acq_date\n"), domain.SnapshotContentType))
	require.NoError(t, s.PutObject(ctx, key, []byte("v2"), domain.SnapshotContentType))

	obj, err := s.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, obj.Key)
	assert.Equal(t, []byte("v2"), obj.Body)
	assert.Equal(t, "text/csv", obj.ContentType)
	assert.Equal(t, testNow, obj.UpdatedAt)
}
