// Package relay implements the private-message dedupe cache that suppresses
// naive client retries within a time window.
package relay

import (
	"sync"
	"time"
)

// DedupeCache remembers recently forwarded private-message fingerprints so
// a retried message is delivered once. Entries expire purely by age; when
// the cache grows past maxEntries a sweep removes everything older than the
// window.
type DedupeCache struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	seen       map[string]time.Time
}

// NewDedupeCache creates a cache with the given suppression window and
// size ceiling.
func NewDedupeCache(window time.Duration, maxEntries int) *DedupeCache {
	return &DedupeCache{
		window:     window,
		maxEntries: maxEntries,
		seen:       make(map[string]time.Time),
	}
}

// ShouldForward reports whether the (message id, room) pair has not been
// forwarded within the window, recording it when it is new. Entries older
// than the window are treated as new again.
func (d *DedupeCache) ShouldForward(messageID, room string, now time.Time) bool {
	key := messageID + "|" + room

	d.mu.Lock()
	defer d.mu.Unlock()

	if stored, ok := d.seen[key]; ok && now.Sub(stored) < d.window {
		return false
	}

	d.seen[key] = now

	if len(d.seen) > d.maxEntries {
		d.sweep(now)
	}
	return true
}

// sweep removes every entry older than the window. Caller holds d.mu.
func (d *DedupeCache) sweep(now time.Time) {
	for key, stored := range d.seen {
		if now.Sub(stored) >= d.window {
			delete(d.seen, key)
		}
	}
}

// Len reports the number of live fingerprints, for diagnostics.
func (d *DedupeCache) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
