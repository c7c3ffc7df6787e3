package embed

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache holds embeddings keyed by Key(text). Implementations must be safe for
// concurrent use. Stored slices are shared with callers and must not be
// modified.
type Cache interface {
	Get(key string) ([]float32, bool)
	Put(key string, vec []float32)
	Len() int
}

// Store is an optional persistent tier consulted when the in-memory cache
// misses.
type Store interface {
	Lookup(ctx context.Context, key string) ([]float32, bool, error)
	Save(ctx context.Context, key string, vec []float32) error
}

// NewMemoryCache returns an in-process cache. maxEntries <= 0 means unbounded
// with no eviction; otherwise the least recently used entry is evicted once
// the cache holds maxEntries vectors.
func NewMemoryCache(maxEntries int) Cache {
	if maxEntries <= 0 {
		return &mapCache{m: make(map[string][]float32)}
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[string, []float32](maxEntries)
	return &lruCache{c: c}
}

type mapCache struct {
	mu sync.RWMutex
	m  map[string][]float32
}

func (c *mapCache) Get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = vec
}

func (c *mapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

type lruCache struct {
	c *lru.Cache[string, []float32]
}

func (c *lruCache) Get(key string) ([]float32, bool) { return c.c.Get(key) }
func (c *lruCache) Put(key string, vec []float32)    { c.c.Add(key, vec) }
func (c *lruCache) Len() int                         { return c.c.Len() }
