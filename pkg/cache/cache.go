// Package cache provides a small bounded TTL cache used for memoizing
// geocoding lookups. It replaces ad-hoc global maps with an injectable
// component whose lifecycle is owned by the process.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache is an LRU-bounded cache whose entries also expire after a fixed
// TTL. The zero value is not usable; use New.
type TTLCache struct {
	lru *lru.Cache
	ttl time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// New creates a TTLCache holding at most size entries, each valid for ttl.
// A ttl of zero disables time-based expiry.
func New(size int, ttl time.Duration) (*TTLCache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &TTLCache{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for key, or false when absent or expired.
// Expired entries are evicted on access.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}

	e := v.(entry)
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *TTLCache) Set(key string, value interface{}) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	c.lru.Add(key, entry{value: value, expiresAt: expiresAt})
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been evicted.
func (c *TTLCache) Len() int {
	return c.lru.Len()
}

// SetClock overrides the cache's time source. Test use only.
func (c *TTLCache) SetClock(now func() time.Time) {
	c.now = now
}
