package authority

import (
	"sync"
	"time"
)

// cacheEntry represents a single cached principal lookup result.
type cacheEntry struct {
	authorizations []string
	expiresAt      time.Time
}

// Cache provides TTL-based caching of a principal's resolved authorizations.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the specified TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves the cached authorizations for principal.
// found reports whether a valid (non-expired) cache entry exists.
func (c *Cache) Get(principal string) (authorizations []string, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[principal]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.authorizations, true
}

// Set stores a lookup result for principal with TTL expiration.
func (c *Cache) Set(principal string, authorizations []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[principal] = cacheEntry{
		authorizations: authorizations,
		expiresAt:      time.Now().Add(c.ttl),
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// Size returns the current number of entries in the cache (including expired ones).
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
