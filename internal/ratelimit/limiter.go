// Package ratelimit implements a per-identity sliding window call counter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most maxCalls per identity within any window.
// Identities are never evicted; the map is sized by the users of one process.
type Limiter struct {
	maxCalls int
	window   time.Duration
	now      func() time.Time

	mu    sync.Mutex
	calls map[string][]time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing maxCalls per window for each identity.
func New(maxCalls int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
		calls:    make(map[string][]time.Time),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// NewExerciseLimiter gates exercise completions: 30 calls per minute.
func NewExerciseLimiter(opts ...Option) *Limiter {
	return New(30, time.Minute, opts...)
}

// NewLessonLimiter gates lesson progress updates: 60 calls per minute.
func NewLessonLimiter(opts ...Option) *Limiter {
	return New(60, time.Minute, opts...)
}

// Check records a call for identity and reports whether it is allowed.
// A rejected call is not recorded.
func (l *Limiter) Check(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(identity, now)
	if len(recent) >= l.maxCalls {
		return false
	}
	l.calls[identity] = append(recent, now)
	return true
}

// TimeUntilReset returns how long until the oldest call in the window ages
// out, or 0 if identity has no recorded calls.
func (l *Limiter) TimeUntilReset(identity string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(identity, now)
	if len(recent) == 0 {
		return 0
	}
	wait := recent[0].Add(l.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Remaining returns how many calls identity may still make in the window.
func (l *Limiter) Remaining(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.maxCalls - len(l.prune(identity, l.now()))
	if n < 0 {
		return 0
	}
	return n
}

// Reset forgets all calls recorded for identity.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.calls, identity)
}

// prune drops timestamps older than now-window. Caller holds l.mu.
func (l *Limiter) prune(identity string, now time.Time) []time.Time {
	ts := l.calls[identity]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		ts = append(ts[:0], ts[i:]...)
		l.calls[identity] = ts
	}
	return ts
}
