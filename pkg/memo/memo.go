package memo

import "sync"

// identity is the address-based key for a cache entry. Callers pass the
// same pointer value (e.g. *store.Record) they would pass to the function
// being memoized; two distinct allocations with identical contents get
// distinct identities, by design.
type identity = any

// Cache[K, V] memoizes a function of one pointer-identity key to a value
// of type V. It is safe for concurrent use. Entries are never evicted:
// caches are additive and never shrink during a corpus's lifetime. The
// Cache itself is owned by the Corpus it was built for, so replacing
// the corpus drops the whole cache — entries, keys, and values — in one
// step.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*V
}

// NewCache creates an empty Cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*V)}
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (*V, bool) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	return v, ok
}

// Set stores value under key, replacing anything previously cached there.
func (c *Cache[K, V]) Set(key K, value *V) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for key, computing and storing it
// via fn if absent. fn may run more than once under concurrent misses
// (two goroutines may race and both compute); the last write wins,
// which is safe because fn is expected to be a pure function of key.
func (c *Cache[K, V]) GetOrCompute(key K, fn func() (*V, error)) (*V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of cached entries. Intended for diagnostics and
// tests, not for any cache-sizing decision — this substrate never
// evicts.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
