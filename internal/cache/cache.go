// file: internal/cache/cache.go
// version: 2.1.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a generic TTL cache safe for concurrent use. The registry keeps its
// provider snapshot here so candidate listing never touches the store on the
// hot path.
type Cache[T any] struct {
	mu         sync.RWMutex
	items      map[string]entry[T]
	defaultTTL time.Duration
	now        func() time.Time

	// loadMu serializes loaders so a cold key is loaded once.
	loadMu sync.Mutex
	// generation is bumped by every invalidation; a load that started before
	// an invalidation does not store its stale result.
	generation uint64
}

// New creates a cache with the given default TTL.
func New[T any](defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		items:      make(map[string]entry[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get retrieves a value if it exists and hasn't expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	now := c.now()
	c.mu.RUnlock()
	if !ok || now.After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// caching its result. Load errors are returned and not cached.
func (c *Cache[T]) GetOrLoad(key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.items[key] = entry[T]{value: v, expiresAt: c.now().Add(c.defaultTTL)}
	}
	c.mu.Unlock()
	return v, nil
}

// InvalidateAll removes all entries.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	c.items = make(map[string]entry[T])
	c.generation++
	c.mu.Unlock()
}
