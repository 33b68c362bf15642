package auth

import (
	"sync"
	"time"
)

// attempt tracks consecutive login failures for one username.
type attempt struct {
	count       int
	lockedUntil time.Time
}

// Tracker counts consecutive failed logins per username and locks a
// username out once a threshold is reached. State is process-local and
// not persisted; a restart clears all counters, which is an accepted
// limitation of the single-instance deployment.
//
// Unknown usernames are tracked under their literal string too, so an
// attacker cannot tell a missing account from a wrong password by
// watching lockout behavior.
type Tracker struct {
	threshold int
	duration  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	attempts map[string]*attempt
}

// NewTracker creates a Tracker that locks a username for duration after
// threshold consecutive failures.
func NewTracker(threshold int, duration time.Duration) *Tracker {
	return &Tracker{
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
		attempts:  make(map[string]*attempt),
	}
}

// SetClock overrides the time source. Used by tests to simulate the
// lockout window expiring.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Locked reports whether username is currently locked out and, if so,
// how long remains. Expired locks are cleared lazily here rather than by
// a timer.
func (t *Tracker) Locked(username string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[username]
	if !ok {
		return false, 0
	}
	if a.lockedUntil.IsZero() {
		return false, 0
	}
	remaining := a.lockedUntil.Sub(t.now())
	if remaining <= 0 {
		delete(t.attempts, username)
		return false, 0
	}
	return true, remaining
}

// RecordFailure registers a failed login for username and returns true
// when this failure tripped the lockout.
func (t *Tracker) RecordFailure(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[username]
	if !ok {
		a = &attempt{}
		t.attempts[username] = a
	}
	a.count++
	if a.count >= t.threshold && a.lockedUntil.IsZero() {
		a.lockedUntil = t.now().Add(t.duration)
		return true
	}
	return false
}

// Reset clears all failure state for username. Called after a
// successful credential verification.
func (t *Tracker) Reset(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, username)
}

// Failures returns the current consecutive failure count for username.
func (t *Tracker) Failures(username string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.attempts[username]; ok {
		return a.count
	}
	return 0
}

// Sweep drops entries whose lock has expired. The background janitor
// calls this so the map does not grow unbounded under a spray of
// unknown usernames.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for username, a := range t.attempts {
		if !a.lockedUntil.IsZero() && now.After(a.lockedUntil) {
			delete(t.attempts, username)
			removed++
		}
	}
	return removed
}
