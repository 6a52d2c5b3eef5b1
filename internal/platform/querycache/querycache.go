// Package querycache is the console's explicit query-result cache, keyed by
// (resource, parameters). Mutation handlers invalidate a whole resource
// family after success; reads for the invalidated family refetch.
package querycache

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/clinicdesk/console/internal/platform/telemetry"
)

// Key identifies one cached query result.
type Key struct {
	Resource string
	Params   string
}

// NewKey builds a key from a resource family and its query parameters.
func NewKey(resource string, params url.Values) Key {
	return Key{Resource: resource, Params: params.Encode()}
}

type entry struct {
	value      any
	generation uint64
	expiresAt  time.Time
}

// Cache is a thread-safe in-memory query cache with lazy TTL expiration.
// Every resource family carries a monotonic generation stamp; a fill issued
// before an invalidation is discarded on arrival, so a slow stale response
// can never overwrite a newer invalidation.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	gens    map[string]uint64
	ttl     time.Duration
	metrics *telemetry.Metrics
}

func New(ttl time.Duration, metrics *telemetry.Metrics) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		metrics: metrics,
	}
}

// Generation returns the current stamp for a resource family. Callers take
// it before issuing a fetch and hand it back to Set.
func (c *Cache) Generation(resource string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[resource]
}

// Get retrieves a cached value. Performs lazy expiration: deletes the entry
// and reports a miss if it has expired.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.metrics.ObserveCacheLookup(key.Resource, false)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.metrics.ObserveCacheLookup(key.Resource, false)
		return nil, false
	}
	c.metrics.ObserveCacheLookup(key.Resource, true)
	return e.value, true
}

// Set stores a fetched value stamped with the generation taken when the
// fetch was issued. Returns false when the family was invalidated in the
// meantime and the value was discarded.
func (c *Cache) Set(key Key, value any, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.Resource] != generation {
		return false
	}
	c.entries[key] = &entry{
		value:      value,
		generation: generation,
		expiresAt:  time.Now().Add(c.ttl),
	}
	return true
}

// Invalidate drops every entry of the resource family and bumps its
// generation so in-flight fills for the old state are rejected.
func (c *Cache) Invalidate(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[resource]++
	for key := range c.entries {
		if key.Resource == resource {
			delete(c.entries, key)
		}
	}
}

// Clear removes all entries and resets no generations.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}

// StartCleanup runs a background goroutine that periodically removes expired
// entries. It stops when the context is cancelled.
func (c *Cache) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				now := time.Now()
				for k, e := range c.entries {
					if now.After(e.expiresAt) {
						delete(c.entries, k)
					}
				}
				c.mu.Unlock()
			}
		}
	}()
}
