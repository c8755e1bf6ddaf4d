// Package cache holds an optional in-memory TTL cache for fetch results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/gofetch/models"
)

// entry holds a cached result with its creation timestamp.
type entry struct {
	result    *models.FetchResult
	createdAt time.Time
}

// Cache is a bounded in-memory result cache. Safe for concurrent use.
// A nil *Cache is a no-op, so callers need no enabled-check.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	ttl        time.Duration
	maxEntries int
}

// New creates a Cache, or nil when ttl is not positive (caching disabled).
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		return nil
	}
	c := &Cache{
		store:      make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key derives the cache key from the request coordinates that change the
// result.
func Key(url, engine, format string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{'|'})
	h.Write([]byte(engine))
	h.Write([]byte{'|'})
	h.Write([]byte(format))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached result when present and fresh.
func (c *Cache) Get(key string) (*models.FetchResult, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok || time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	cp := *e.result
	return &cp, true
}

// Set stores a result. At capacity one arbitrary entry is evicted to make
// room (map iteration order is random).
func (c *Cache) Set(key string, result *models.FetchResult) {
	if c == nil {
		return
	}
	cp := *result
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{result: &cp, createdAt: time.Now()}
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.ttl)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
