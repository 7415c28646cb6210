package data

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/trendnav/knn-navigator/pkg/types"
)

// MemoryCache implements Cache with an in-memory map. Entries are copied on
// both sides so callers can never mutate a cached series.
type MemoryCache struct {
	cache map[string][]types.OHLCV
	mutex sync.RWMutex
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{cache: make(map[string][]types.OHLCV)}
}

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

// CachedProvider wraps another Provider with a read-through cache. A sweep
// and its baselines hit the same file repeatedly; only the first load does
// any I/O.
type CachedProvider struct {
	provider Provider
	cache    Cache
}

// NewCachedProvider wraps provider with an in-memory cache.
func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{provider: provider, cache: NewMemoryCache()}
}

// NewCachedProviderWithCache wraps provider with a caller-supplied cache.
func NewCachedProviderWithCache(provider Provider, cache Cache) *CachedProvider {
	return &CachedProvider{provider: provider, cache: cache}
}

// GetName returns the underlying provider name with a cache marker.
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns the cached series for source, loading it on first use.
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	if cached, exists := p.cache.Get(source); exists {
		return cached, nil
	}

	log.Printf("🔄 Loading historical data from %s", filepath.Base(source))
	data, err := p.provider.LoadData(source)
	if err != nil {
		log.Printf("❌ Failed to load data from %s: %v", filepath.Base(source), err)
		return nil, err
	}

	p.cache.Set(source, data)

	log.Printf("✅ Loaded and cached data from %s (%d records)", filepath.Base(source), len(data))
	return data, nil
}

// ValidateData delegates to the underlying provider.
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.provider.ValidateData(data)
}

// ClearCache drops all cached series.
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// CacheSize returns the number of cached series.
func (p *CachedProvider) CacheSize() int {
	return p.cache.Size()
}
