package imagemeta

import (
	"path/filepath"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// CacheRecorder receives cache hit and miss events.
type CacheRecorder interface {
	IncrementCacheHits()
	IncrementCacheMisses()
}

// CachedProvider memoizes the dimensions returned by another provider.
// Failures are not cached. Entries never expire and no cleanup goroutine
// is started.
type CachedProvider struct {
	next     Provider
	cache    *cache.Cache
	recorder CacheRecorder
	hits     atomic.Int64
	misses   atomic.Int64
}

// CacheOption configures a CachedProvider.
type CacheOption func(*CachedProvider)

// WithRecorder forwards hit and miss events to r.
func WithRecorder(r CacheRecorder) CacheOption {
	return func(c *CachedProvider) {
		c.recorder = r
	}
}

// NewCachedProvider wraps next with a dimension cache.
func NewCachedProvider(next Provider, opts ...CacheOption) *CachedProvider {
	c := &CachedProvider{
		next:  next,
		cache: cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dimensions returns the cached size for path or asks the wrapped provider.
func (c *CachedProvider) Dimensions(path string) (Size, error) {
	key := filepath.Clean(path)

	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		if c.recorder != nil {
			c.recorder.IncrementCacheHits()
		}
		return v.(Size), nil
	}

	c.misses.Add(1)
	if c.recorder != nil {
		c.recorder.IncrementCacheMisses()
	}

	size, err := c.next.Dimensions(path)
	if err != nil {
		return Size{}, err
	}
	c.cache.Set(key, size, cache.NoExpiration)
	return size, nil
}

// Stats returns the number of hits and misses so far.
func (c *CachedProvider) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached entries.
func (c *CachedProvider) Len() int {
	return c.cache.ItemCount()
}
