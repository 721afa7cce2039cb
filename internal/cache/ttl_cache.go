// Package cache provides a small thread-safe cache with time-based expiry,
// used to keep derived corpus artifacts (such as full-text indexes) keyed by
// corpus fingerprint.
package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value  V
	stored time.Time
}

// TTLCache is a thread-safe cache with per-entry expiration and an optional
// capacity. A zero TTL keeps entries until they are evicted by capacity or
// Invalidate.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	data    map[K]entry[V]
	order   []K
	ttl     time.Duration
	max     int
	onEvict func(K, V)

	group singleflight.Group
}

// Option configures a TTLCache.
type Option[K comparable, V any] func(*TTLCache[K, V])

// WithCapacity bounds the number of entries; the oldest is evicted first.
func WithCapacity[K comparable, V any](n int) Option[K, V] {
	return func(c *TTLCache[K, V]) { c.max = n }
}

// WithEvict registers fn to run when an entry leaves the cache. fn runs
// without the cache lock held.
func WithEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *TTLCache[K, V]) { c.onEvict = fn }
}

// New creates an empty TTLCache.
func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.expiredLocked(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. Replacing a key evicts the previous value.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	evicted := c.setLocked(key, value)
	c.mu.Unlock()
	c.evict(evicted)
}

// GetOrCompute returns the cached value for key or computes it with fn.
// Concurrent callers for the same key share one fn call. Errors are not
// cached.
func (c *TTLCache[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	e, ok := c.data[key]
	if ok {
		delete(c.data, key)
		c.removeOrder(key)
	}
	c.mu.Unlock()
	if ok {
		c.evict([]evictedEntry[K, V]{{key, e.value}})
	}
}

// Invalidate removes every entry.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	evicted := make([]evictedEntry[K, V], 0, len(c.data))
	for _, k := range c.order {
		evicted = append(evicted, evictedEntry[K, V]{k, c.data[k].value})
	}
	c.data = make(map[K]entry[V])
	c.order = nil
	c.mu.Unlock()
	c.evict(evicted)
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

type evictedEntry[K comparable, V any] struct {
	key   K
	value V
}

// setLocked must be called with c.mu held for writing.
func (c *TTLCache[K, V]) setLocked(key K, value V) []evictedEntry[K, V] {
	var evicted []evictedEntry[K, V]
	if old, ok := c.data[key]; ok {
		c.removeOrder(key)
		evicted = append(evicted, evictedEntry[K, V]{key, old.value})
	}
	c.data[key] = entry[V]{value: value, stored: time.Now()}
	c.order = append(c.order, key)

	for c.max > 0 && len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		evicted = append(evicted, evictedEntry[K, V]{oldest, c.data[oldest].value})
		delete(c.data, oldest)
	}
	return evicted
}

func (c *TTLCache[K, V]) removeOrder(key K) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *TTLCache[K, V]) expiredLocked(e entry[V]) bool {
	return c.ttl > 0 && time.Since(e.stored) >= c.ttl
}

func (c *TTLCache[K, V]) evict(entries []evictedEntry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range entries {
		c.onEvict(e.key, e.value)
	}
}

func flightKey[K comparable](key K) string {
	if s, ok := any(key).(string); ok {
		return s
	}
	return fmt.Sprint(key)
}
