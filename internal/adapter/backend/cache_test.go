package backend

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historic(i int) domain.ImageLocator {
	return domain.ImageLocator{Index: i, Address: "http://storms.test/api/date/20231025/maps/general/" + strconv.Itoa(i), Buster: "20231025", Cacheable: true}
}

func TestCachedImages_HistoricCacheHit(t *testing.T) {
	inner := &stubSource{data: []byte("png")}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedImages(inner, 10, metrics)

	for range 3 {
		got, err := cached.Load(context.Background(), historic(0))
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), got)
	}
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 2, counterValue(t, metrics.ImageCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, counterValue(t, metrics.ImageCache.WithLabelValues("miss")), 0)
}

func TestCachedImages_LatestNeverCached(t *testing.T) {
	inner := &stubSource{data: []byte("png")}
	cached := NewCachedImages(inner, 10, observability.NewMetricsForTesting())
	loc := domain.ImageLocator{Address: "http://storms.test/api/maps", Buster: "1698213600000"}

	for range 3 {
		_, err := cached.Load(context.Background(), loc)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedImages_ErrorsNotCached(t *testing.T) {
	inner := &stubSource{err: errors.New("down")}
	cached := NewCachedImages(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Load(context.Background(), historic(0))
	require.Error(t, err)
	_, err = cached.Load(context.Background(), historic(0))
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := newLRUCache(2)
	cache.put("a", []byte("1"))
	cache.put("b", []byte("2"))
	cache.put("c", []byte("3")) // evicts a

	_, ok := cache.get("a")
	assert.False(t, ok, "a should be evicted")
	_, ok = cache.get("b")
	assert.True(t, ok)
	_, ok = cache.get("c")
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotes(t *testing.T) {
	cache := newLRUCache(2)
	cache.put("a", []byte("1"))
	cache.put("b", []byte("2"))
	cache.get("a")              // a becomes most recent
	cache.put("c", []byte("3")) // evicts b

	_, ok := cache.get("a")
	assert.True(t, ok, "a should survive")
	_, ok = cache.get("b")
	assert.False(t, ok, "b should be evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	cache := newLRUCache(2)
	cache.put("a", []byte("1"))
	cache.put("a", []byte("2"))

	v, ok := cache.get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, cache.len())
}
