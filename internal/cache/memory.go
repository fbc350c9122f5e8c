package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item wraps cached data with its expiry time
type item struct {
	Data      []byte
	ExpiresAt time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// MemoryCache is a bounded in-process cache used when Redis is not
// configured. Entries expire lazily on read.
type MemoryCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, item]
	now func() time.Time
}

// NewMemoryCache creates a cache holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l, now: time.Now}, nil
}

// Get returns the value for key, or false if it is missing or expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *MemoryCache) getLocked(key string) ([]byte, bool) {
	val, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if val.expired(c.now()) {
		c.lru.Remove(key)
		return nil, false
	}
	return val.Data, true
}

// Set stores data under key for ttl. A zero ttl never expires.
func (c *MemoryCache) Set(key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, data, ttl)
}

func (c *MemoryCache) setLocked(key string, data []byte, ttl time.Duration) {
	it := item{Data: data}
	if ttl > 0 {
		it.ExpiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, it)
}

// SetNX stores data only if key is absent or expired.
func (c *MemoryCache) SetNX(key string, data []byte, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.getLocked(key); ok {
		return false
	}
	c.setLocked(key, data, ttl)
	return true
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
