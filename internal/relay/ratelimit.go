// Package relay implements a fixed-window rate limiter keyed by connection
// and event name, protecting the relay from abusive clients.
package relay

import (
	"sync"
	"time"
)

// EventLimit defines how many events of one kind a connection may send per
// window. Events without a configured limit are never throttled.
type EventLimit struct {
	Max    int
	Window time.Duration
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter tracks per-connection, per-event fixed-window counters.
// Windows reset on the first event at or after resetAt; bursts across a
// window boundary are accepted.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]EventLimit
	buckets map[string]map[string]*bucket // connection id -> event -> bucket
	now     func() time.Time
}

// NewRateLimiter creates a limiter enforcing the given per-event limits.
func NewRateLimiter(limits map[string]EventLimit) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		buckets: make(map[string]map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether the connection may send another event of the given
// kind, incrementing its window counter when it may. The check and the
// increment are atomic.
func (rl *RateLimiter) Allow(connID, event string) bool {
	limit, ok := rl.limits[event]
	if !ok {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	perConn := rl.buckets[connID]
	if perConn == nil {
		perConn = make(map[string]*bucket)
		rl.buckets[connID] = perConn
	}

	b := perConn[event]
	if b == nil {
		b = &bucket{resetAt: now.Add(limit.Window)}
		perConn[event] = b
	}

	if !now.Before(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(limit.Window)
	}

	if b.count >= limit.Max {
		return false
	}

	b.count++
	return true
}

// Release drops every bucket owned by the connection. It must be called on
// disconnect or the limiter leaks one entry per historical connection.
func (rl *RateLimiter) Release(connID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, connID)
}
