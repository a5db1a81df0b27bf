package opencage

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Resolve(ctx context.Context, areaCode string) (domain.Coordinates, bool, error) {
	key := strings.TrimSpace(areaCode)
	if coords, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return coords, true, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	coords, ok, err := c.inner.Resolve(ctx, areaCode)
	if err != nil || !ok {
		return coords, ok, err
	}
	// Only positive matches are cached so a missing postal code is retried.
	c.cache.put(key, coords)
	return coords, true, nil
}

// lruCache is a mutex-guarded LRU of resolved coordinates keyed by postal code.
type lruCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type cached struct {
	areaCode string
	coords   domain.Coordinates
}

func newLRUCache(limit int) *lruCache {
	return &lruCache{
		limit:   max(limit, 1),
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *lruCache) get(areaCode string) (domain.Coordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[areaCode]
	if !ok {
		return domain.Coordinates{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).coords, true
}

func (c *lruCache) put(areaCode string, coords domain.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[areaCode]; ok {
		el.Value.(*cached).coords = coords
		c.order.MoveToFront(el)
		return
	}
	c.entries[areaCode] = c.order.PushFront(&cached{areaCode: areaCode, coords: coords})

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cached).areaCode)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
