package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a small TTL cache. Expired entries are dropped on access.
type Cache[V any] struct {
	mu    sync.Mutex
	items map[string]item[V]
	now   func() time.Time
}

func New[V any]() *Cache[V] {
	return &Cache[V]{
		items: make(map[string]item[V]),
		now:   time.Now,
	}
}

// WithClock returns c using now as its time source.
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.now = now
	return c
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, exists := c.items[key]
	if !exists {
		return zero, false
	}

	if !c.now().Before(it.expiresAt) {
		delete(c.items, key)
		return zero, false
	}

	return it.value, true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
