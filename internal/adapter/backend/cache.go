package backend

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
)

// CachedImages wraps an ImageSource with an in-memory LRU cache. Only
// cacheable locators are stored; latest-slot images always go to the source
// so a stale frame is never served.
type CachedImages struct {
	inner   ImageSource
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedImages creates a cache decorator around an image source.
func NewCachedImages(inner ImageSource, maxEntries int, metrics *observability.Metrics) *CachedImages {
	return &CachedImages{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedImages) Load(ctx context.Context, loc domain.ImageLocator) ([]byte, error) {
	if !loc.Cacheable {
		c.metrics.ImageCache.WithLabelValues("bypass").Inc()
		return c.inner.Load(ctx, loc)
	}

	key := loc.URL()
	if data, ok := c.cache.get(key); ok {
		c.metrics.ImageCache.WithLabelValues("hit").Inc()
		return data, nil
	}
	c.metrics.ImageCache.WithLabelValues("miss").Inc()

	data, err := c.inner.Load(ctx, loc)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, data)
	return data, nil
}

// Len returns the number of cached images.
func (c *CachedImages) Len() int {
	return c.cache.len()
}

// lruCache is a thread-safe LRU cache of image bytes keyed by URL.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
}

type entry struct {
	key   string
	value []byte
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
