// Package tokencache caches decoded claims keyed by the bearer string's
// fingerprint, so rapid-fire requests with the same token skip repeated
// signature verification. The cache never stands in for the blacklist:
// a hit still gets the revocation check before it is trusted.
package tokencache

import (
	"sync"
	"time"

	"github.com/trackforge/trackforge/pkg/tokenx"
)

// DefaultTTL caps how long an entry may live regardless of token expiry.
const DefaultTTL = 5 * time.Minute

type entry struct {
	claims   tokenx.Claims
	deadline time.Time
}

// Cache is a process-local verification cache. Safe for concurrent use;
// reads and writes touch a single mutex-guarded map, which is plenty for a
// cache whose hits save an HMAC verification each.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry  // fingerprint -> entry
	byJTI   map[string]string // tokenID -> fingerprint, for invalidation
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		byJTI:   make(map[string]string),
	}
}

// Get returns the cached claims for a fingerprint, if present and fresh.
func (c *Cache) Get(fingerprint string) (tokenx.Claims, bool) {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return tokenx.Claims{}, false
	}

	if time.Now().After(e.deadline) {
		c.evict(fingerprint, e.claims.TokenID())
		return tokenx.Claims{}, false
	}
	return e.claims, true
}

// Put caches claims under the token's fingerprint. Entry lifetime is the
// smaller of the cache TTL and the token's remaining validity, so a cached
// token can never outlive its own expiry.
func (c *Cache) Put(fingerprint string, claims tokenx.Claims) {
	now := time.Now()
	ttl := c.ttl
	if remaining := claims.Remaining(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[fingerprint] = entry{claims: claims, deadline: now.Add(ttl)}
	c.byJTI[claims.TokenID()] = fingerprint
	c.mu.Unlock()
}

// Invalidate drops the entry for a token id. Called synchronously by
// whoever writes the id to the blacklist; this bounds staleness to the gap
// between revocation and the next read, and that read re-checks the
// blacklist anyway.
func (c *Cache) Invalidate(tokenID string) {
	c.mu.Lock()
	if fp, ok := c.byJTI[tokenID]; ok {
		delete(c.entries, fp)
		delete(c.byJTI, tokenID)
	}
	c.mu.Unlock()
}

// Len reports the number of live entries; used by housekeeping logging.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) evict(fingerprint, tokenID string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	delete(c.byJTI, tokenID)
	c.mu.Unlock()
}
