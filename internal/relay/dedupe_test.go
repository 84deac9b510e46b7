package relay

import (
	"fmt"
	"testing"
	"time"
)

// TestDedupeCacheWindow verifies that a repeated (message id, room) pair is
// suppressed inside the window and treated as new once the window has
// passed.
func TestDedupeCacheWindow(t *testing.T) {
	d := NewDedupeCache(120*time.Second, 20000)
	t0 := time.Unix(1700000000, 0)

	if !d.ShouldForward("m1", "alice@example.com", t0) {
		t.Fatal("first forward suppressed")
	}
	if d.ShouldForward("m1", "alice@example.com", t0.Add(time.Second)) {
		t.Fatal("retry within window forwarded")
	}
	if d.ShouldForward("m1", "alice@example.com", t0.Add(119*time.Second)) {
		t.Fatal("late retry within window forwarded")
	}
	if !d.ShouldForward("m1", "alice@example.com", t0.Add(120*time.Second)) {
		t.Fatal("retry after window suppressed, want forwarded")
	}
}

// TestDedupeCacheKeyScope verifies that the same message id targeting
// different rooms, and different ids targeting the same room, are
// independent entries.
func TestDedupeCacheKeyScope(t *testing.T) {
	d := NewDedupeCache(120*time.Second, 20000)
	now := time.Unix(1700000000, 0)

	if !d.ShouldForward("m1", "alice@example.com", now) {
		t.Fatal("first forward suppressed")
	}
	if !d.ShouldForward("m1", "bob@example.com", now) {
		t.Fatal("same id, different room suppressed")
	}
	if !d.ShouldForward("m2", "alice@example.com", now) {
		t.Fatal("different id, same room suppressed")
	}
}

// TestDedupeCacheSweep verifies that exceeding the ceiling triggers a
// time-based sweep: stale entries vanish, fresh ones survive.
func TestDedupeCacheSweep(t *testing.T) {
	d := NewDedupeCache(120*time.Second, 10)
	t0 := time.Unix(1700000000, 0)

	for i := 0; i < 10; i++ {
		d.ShouldForward(fmt.Sprintf("old-%d", i), "room", t0)
	}
	if got := d.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}

	// The 11th insert lands past the window and sweeps the stale ten.
	later := t0.Add(121 * time.Second)
	if !d.ShouldForward("fresh", "room", later) {
		t.Fatal("fresh entry suppressed")
	}
	if got := d.Len(); got != 1 {
		t.Fatalf("Len() after sweep = %d, want 1", got)
	}

	// A swept id is treated as new again.
	if !d.ShouldForward("old-0", "room", later) {
		t.Fatal("swept entry still suppressed")
	}
}
