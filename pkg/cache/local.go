package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	value   []byte
	expires time.Time
}

// LocalCache is a size-bounded in-process LRU. Entries expire after the
// shorter of the per-call ttl and the cache-wide maxTTL.
type LocalCache struct {
	lru    *lru.LRU[string, entry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewLocalCache creates an LRU holding at most size entries
func NewLocalCache(size int, maxTTL time.Duration) *LocalCache {
	if size < 16 {
		size = 16
	}
	return &LocalCache{
		lru:    lru.NewLRU[string, entry](size, nil, maxTTL),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

func (c *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return nil, nil
	}
	return e.value, nil
}

func (c *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.maxTTL > 0 && (ttl <= 0 || ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *LocalCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *LocalCache) Len() int {
	return c.lru.Len()
}

// Ping always succeeds
func (c *LocalCache) Ping(context.Context) error { return nil }

// Close purges the cache
func (c *LocalCache) Close() error {
	c.lru.Purge()
	return nil
}
