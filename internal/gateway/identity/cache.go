package identity

import (
	"sync"
	"time"
)

// Cache memoizes successful verifications for a short TTL so hot sessions
// don't re-verify on every proxied request. It is best-effort and
// disposable: any caller may clear it at any time, and nothing assumes an
// entry survives. Entries never outlive the token's own expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	max     int
}

type cacheEntry struct {
	claims    Claims
	expiresAt time.Time
}

// DefaultCacheSize bounds the cache; when full, expired entries are evicted
// and, failing that, the insert is skipped rather than growing unbounded.
const DefaultCacheSize = 4096

// NewCache creates a verification cache with the given entry TTL.
func NewCache(ttl time.Duration, max int) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		max:     max,
	}
}

// Get returns cached claims for a token fingerprint, if still fresh.
func (c *Cache) Get(fingerprint string) (Claims, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		return Claims{}, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, fingerprint)
		return Claims{}, false
	}
	return e.claims, true
}

// Put stores claims under a token fingerprint. The entry expires at the
// cache TTL or the token's own exp, whichever comes first, so an expired
// token can never be served as valid from cache.
func (c *Cache) Put(fingerprint string, claims Claims) {
	expiresAt := time.Now().Add(c.ttl)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(expiresAt) {
		expiresAt = claims.ExpiresAt.Time
	}
	if !expiresAt.After(time.Now()) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.max {
		c.evictExpiredLocked()
		if len(c.entries) >= c.max {
			return
		}
	}

	c.entries[fingerprint] = cacheEntry{claims: claims, expiresAt: expiresAt}
}

// Len returns the current number of entries, counting expired-but-unswept ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// InvalidateAll drops every entry and reports the before/after sizes. It is
// idempotent, never fails, and is safe under concurrent calls; clearing an
// already-empty cache is a no-op. This is the emergency-reset escape hatch.
func (c *Cache) InvalidateAll() (before, after int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before = len(c.entries)
	c.entries = make(map[string]cacheEntry)
	return before, 0
}

func (c *Cache) evictExpiredLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
