package relay

import (
	"testing"
	"time"
)

// fakeClock drives the limiter's view of time from tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(max int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	rl := NewRateLimiter(map[string]EventLimit{
		EventMessage: {Max: max, Window: window},
	})
	rl.now = clock.Now
	return rl, clock
}

// TestRateLimiterWindow verifies that exactly max events pass within one
// window, the next is rejected without incrementing, and the counter
// resets once the window elapses.
func TestRateLimiterWindow(t *testing.T) {
	rl, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("conn-1", EventMessage) {
			t.Fatalf("event %d rejected, want allowed", i+1)
		}
	}
	if rl.Allow("conn-1", EventMessage) {
		t.Fatal("4th event allowed, want rejected")
	}
	if rl.Allow("conn-1", EventMessage) {
		t.Fatal("5th event allowed, want rejected")
	}

	clock.Advance(time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("conn-1", EventMessage) {
			t.Fatalf("event %d after reset rejected, want allowed", i+1)
		}
	}
	if rl.Allow("conn-1", EventMessage) {
		t.Fatal("4th event after reset allowed, want rejected")
	}
}

// TestRateLimiterUnconfiguredEvent verifies that events without a
// configured limit always pass.
func TestRateLimiterUnconfiguredEvent(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	for i := 0; i < 100; i++ {
		if !rl.Allow("conn-1", EventJoinRoom) {
			t.Fatalf("unlimited event %d rejected", i+1)
		}
	}
}

// TestRateLimiterPerConnection verifies buckets are independent between
// connections.
func TestRateLimiterPerConnection(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	if !rl.Allow("conn-a", EventMessage) {
		t.Fatal("conn-a first event rejected")
	}
	if rl.Allow("conn-a", EventMessage) {
		t.Fatal("conn-a second event allowed")
	}
	if !rl.Allow("conn-b", EventMessage) {
		t.Fatal("conn-b first event rejected despite fresh bucket")
	}
}

// TestRateLimiterRelease verifies that releasing a connection drops its
// history so a reused identifier starts fresh.
func TestRateLimiterRelease(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	if !rl.Allow("conn-1", EventMessage) {
		t.Fatal("first event rejected")
	}
	if rl.Allow("conn-1", EventMessage) {
		t.Fatal("second event allowed")
	}

	rl.Release("conn-1")

	if !rl.Allow("conn-1", EventMessage) {
		t.Fatal("event after release rejected, want fresh bucket")
	}
}

// TestRateLimiterBoundaryBurst verifies the fixed-window property: a full
// window's worth of events just before and just after a reset are both
// accepted.
func TestRateLimiterBoundaryBurst(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Minute)

	// Window opens on the first event.
	if !rl.Allow("conn-1", EventMessage) {
		t.Fatal("first event rejected")
	}
	clock.Advance(59 * time.Second)
	if !rl.Allow("conn-1", EventMessage) {
		t.Fatal("second event rejected")
	}
	if rl.Allow("conn-1", EventMessage) {
		t.Fatal("third event in window allowed")
	}

	// Crossing the boundary opens a fresh window; the burst of four events
	// inside ~one minute of wall time is accepted by design.
	clock.Advance(2 * time.Second)
	if !rl.Allow("conn-1", EventMessage) || !rl.Allow("conn-1", EventMessage) {
		t.Fatal("events after boundary rejected, want new window")
	}
}
