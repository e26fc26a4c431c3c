// Package memcache is the single-instance fallback used when Redis is not configured.
package memcache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	ops   uint64
	now   func() time.Time
}

func New() *Cache {
	return &Cache{
		items: make(map[string]entry),
		now:   time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return "", nil
	}
	if e.expired(c.now()) {
		delete(c.items, key)
		return "", nil
	}
	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = c.newEntry(value, ttl)
	c.sweepLocked()
	return nil
}

func (c *Cache) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok && !e.expired(c.now()) {
		return false, nil
	}

	c.items[key] = c.newEntry(value, ttl)
	c.sweepLocked()
	return true, nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

func (c *Cache) Ping(context.Context) error {
	return nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]entry)
	return nil
}

func (c *Cache) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	return e
}

// sweepLocked drops expired keys every 256 writes to bound memory.
func (c *Cache) sweepLocked() {
	c.ops++
	if c.ops%256 != 0 {
		return
	}

	now := c.now()
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
		}
	}
}
