// Package cache holds the short-lived read-through values used by panel reads and
// refreshed by the distribution cycle.
package cache

import (
	"sync"
	"time"

	"promo_rotation_bot/internal/domain/destination"
	"promo_rotation_bot/internal/domain/participant"
)

const DefaultTTL = 5 * time.Minute

type entry[V any] struct {
	value       V
	lastUpdated time.Time
}

// TTL is a key/value store whose entries expire lazily on read. It never evicts on
// its own, so memory grows with the number of distinct keys.
type TTL[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]entry[V]
}

// NewTTL returns an empty cache. A non-positive ttl falls back to DefaultTTL.
func NewTTL[V any](ttl time.Duration, now func() time.Time) *TTL[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TTL[V]{ttl: ttl, now: now, entries: make(map[int64]entry[V])}
}

// Get returns the cached value when present and younger than the TTL.
func (c *TTL[V]) Get(key int64) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.lastUpdated) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value stamped with the current time.
func (c *TTL[V]) Set(key int64, value V) {
	c.SetAt(key, value, c.now())
}

// SetAt stores value stamped with at; used to mirror a batch under one epoch.
func (c *TTL[V]) SetAt(key int64, value V, at time.Time) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, lastUpdated: at}
	c.mu.Unlock()
}

// Invalidate forces the next Get for key to miss.
func (c *TTL[V]) Invalidate(key int64) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Layer bundles the two cached derivations shared by the panel and the cycle.
type Layer struct {
	Counters *TTL[participant.Counters]
	Channels *TTL[destination.Lookup]
}

func NewLayer(ttl time.Duration, now func() time.Time) *Layer {
	return &Layer{
		Counters: NewTTL[participant.Counters](ttl, now),
		Channels: NewTTL[destination.Lookup](ttl, now),
	}
}
