package data

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// MemoryCache implements DataCache using in-memory storage
type MemoryCache struct {
	cache map[string][]types.OHLCV
	mutex sync.RWMutex
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.OHLCV),
	}
}

// Get returns a copy of the cached bars
func (c *MemoryCache) Get(key string) ([]types.OHLCV, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	result := make([]types.OHLCV, len(data))
	copy(result, data)
	return result, true
}

// Set stores a copy of data
func (c *MemoryCache) Set(key string, data []types.OHLCV) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make([]types.OHLCV, len(data))
	copy(cached, data)
	c.cache[key] = cached
}

func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache = make(map[string][]types.OHLCV)
}

func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// CacheStats provides cache hit/miss counters
type CacheStats struct {
	HitCount  int64
	MissCount int64
	Size      int
}

// CachedFeed memoizes another BarFeed per symbol and range. Errors are not
// cached.
type CachedFeed struct {
	feed   BarFeed
	cache  DataCache
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedFeed(feed BarFeed) *CachedFeed {
	return NewCachedFeedWithCache(feed, NewMemoryCache())
}

func NewCachedFeedWithCache(feed BarFeed, cache DataCache) *CachedFeed {
	return &CachedFeed{feed: feed, cache: cache}
}

// GetBars implements BarFeed
func (c *CachedFeed) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.OHLCV, error) {
	key := fmt.Sprintf("%s|%d|%d", symbol, start.UnixNano(), end.UnixNano())
	if bars, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return bars, nil
	}
	c.misses.Add(1)

	bars, err := c.feed.GetBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, bars)
	return bars, nil
}

// Stats returns hit/miss counters
func (c *CachedFeed) Stats() CacheStats {
	return CacheStats{
		HitCount:  c.hits.Load(),
		MissCount: c.misses.Load(),
		Size:      c.cache.Size(),
	}
}

// ClearCache clears all cached data
func (c *CachedFeed) ClearCache() {
	c.cache.Clear()
}
