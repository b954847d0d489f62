package session

import (
	"sync"
	"time"
)

// Timer counts down to an absolute wall-clock deadline for one question.
// The expiry signal fires exactly once per Start and never after a Cancel
// that preceded the firing instant; the race is decided under the mutex, so
// a handle can only ever end up fired or cancelled, not both.
type Timer struct {
	limit    time.Duration
	deadline time.Time
	now      func() time.Time

	mu        sync.Mutex
	af        *time.Timer
	expired   chan struct{}
	cancelled chan struct{}
	settled   bool
}

// StartTimer arms a countdown of limit against the real clock.
func StartTimer(limit time.Duration) *Timer {
	return startTimer(limit, time.Now)
}

// startTimer allows an injected clock for deterministic elapsed-time tests.
// Expiry itself is still driven by the real scheduler.
func startTimer(limit time.Duration, now func() time.Time) *Timer {
	t := &Timer{
		limit:     limit,
		deadline:  now().Add(limit),
		now:       now,
		expired:   make(chan struct{}),
		cancelled: make(chan struct{}),
	}
	t.af = time.AfterFunc(limit, t.fire)
	return t
}

func (t *Timer) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return
	}
	t.settled = true
	close(t.expired)
}

// Cancel stops the countdown. Idempotent; a no-op once the timer has fired.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return
	}
	t.settled = true
	t.af.Stop()
	close(t.cancelled)
}

// Expired is closed exactly once when the deadline passes uncancelled.
func (t *Timer) Expired() <-chan struct{} { return t.expired }

// Cancelled is closed when Cancel wins; watchers use it to stop waiting.
func (t *Timer) Cancelled() <-chan struct{} { return t.cancelled }

// Remaining is the time left until the deadline, clamped to [0, limit].
// Wall-clock based: a stalled caller does not stretch the effective limit.
func (t *Timer) Remaining() time.Duration {
	r := t.deadline.Sub(t.now())
	if r < 0 {
		return 0
	}
	if r > t.limit {
		return t.limit
	}
	return r
}

// Limit is the full countdown duration the timer was started with.
func (t *Timer) Limit() time.Duration { return t.limit }

// Elapsed is limit minus remaining, rounded to whole seconds.
func (t *Timer) Elapsed() int {
	return int((t.limit - t.Remaining()).Round(time.Second) / time.Second)
}
