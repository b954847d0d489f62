package session

import (
	"sync"
	"testing"
	"time"
)

func TestTimerFiresExactlyOnce(t *testing.T) {
	tm := StartTimer(30 * time.Millisecond)

	select {
	case <-tm.Expired():
	case <-time.After(time.Second):
		t.Fatalf("timer did not expire")
	}

	// Cancel after expiry must not panic or un-fire anything.
	tm.Cancel()
	select {
	case <-tm.Cancelled():
		t.Fatalf("cancelled signal after expiry")
	default:
	}
}

func TestCancelPreventsExpiry(t *testing.T) {
	tm := StartTimer(50 * time.Millisecond)
	tm.Cancel()

	select {
	case <-tm.Expired():
		t.Fatalf("expiry fired after cancel")
	case <-time.After(150 * time.Millisecond):
	}

	select {
	case <-tm.Cancelled():
	default:
		t.Fatalf("expected cancelled signal")
	}
}

func TestCancelIdempotent(t *testing.T) {
	tm := StartTimer(time.Minute)
	tm.Cancel()
	tm.Cancel()
	tm.Cancel()
}

func TestRemainingIsWallClockBased(t *testing.T) {
	clock := newFakeClock()
	tm := startTimer(10*time.Second, clock.Now)

	clock.Advance(3 * time.Second)
	if got := tm.Remaining(); got != 7*time.Second {
		t.Fatalf("expected 7s remaining, got %v", got)
	}
	if got := tm.Elapsed(); got != 3 {
		t.Fatalf("expected 3s elapsed, got %d", got)
	}

	// Past the deadline the values clamp instead of going negative.
	clock.Advance(time.Hour)
	if got := tm.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %v", got)
	}
	if got := tm.Elapsed(); got != 10 {
		t.Fatalf("expected elapsed clamped to 10, got %d", got)
	}
	tm.Cancel()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
