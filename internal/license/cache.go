package license

import (
	"sync"
	"time"
)

// cacheEntry is one positive gate answer.
type cacheEntry struct {
	checkedAt time.Time
	expiresAt time.Time
}

// statusCache remembers the logins the feature server accepted.
type statusCache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	now       func() time.Time
}

func newStatusCache(ttl time.Duration, maxSize int) *statusCache {
	return &statusCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// allowed reports whether login was accepted within the ttl.
func (c *statusCache) allowed(login string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[login]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, login)
		c.missCount++
		return false
	}
	c.hitCount++
	return true
}

func (c *statusCache) accept(login string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 || c.ttl <= 0 {
		return
	}
	if _, ok := c.entries[login]; !ok && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	now := c.now()
	c.entries[login] = cacheEntry{checkedAt: now, expiresAt: now.Add(c.ttl)}
}

func (c *statusCache) forget(login string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, login)
}

func (c *statusCache) stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount
}

func (c *statusCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.checkedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.checkedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
