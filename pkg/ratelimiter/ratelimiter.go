// Package ratelimiter bounds how often the control loop is allowed to
// push a config change (a rate write) using a sliding
// window over monotonic time, grounded the way golang.org/x/time/rate
// tracks token consumption but specialized to a simple count/window
// rather than a token bucket, since the domain wants a hard cap on
// changes per window rather than a smoothed rate.
package ratelimiter

import (
	"container/list"
	"time"
)

// Clock abstracts monotonic time so tests can drive the window without
// sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now, whose
// monotonic reading is immune to wall-clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Limiter is a FIFO sliding window: at most MaxChanges may be recorded
// within any WindowSeconds-wide trailing window.
type Limiter struct {
	MaxChanges    int
	WindowSeconds float64
	clock         Clock
	events        *list.List // of time.Time, oldest at Front
}

// New returns a Limiter using the system clock.
func New(maxChanges int, windowSeconds float64) *Limiter {
	return NewWithClock(maxChanges, windowSeconds, SystemClock{})
}

// NewWithClock returns a Limiter driven by an injected Clock, the seam
// tests use to simulate the passage of time.
func NewWithClock(maxChanges int, windowSeconds float64, clock Clock) *Limiter {
	return &Limiter{
		MaxChanges:    maxChanges,
		WindowSeconds: windowSeconds,
		clock:         clock,
		events:        list.New(),
	}
}

func (l *Limiter) evictExpired(now time.Time) {
	cutoff := now.Add(-time.Duration(l.WindowSeconds * float64(time.Second)))
	for l.events.Len() > 0 {
		front := l.events.Front()
		if front.Value.(time.Time).Before(cutoff) {
			l.events.Remove(front)
			continue
		}
		break
	}
}

// CanChange reports whether another change is allowed right now.
func (l *Limiter) CanChange() bool {
	now := l.clock.Now()
	l.evictExpired(now)
	return l.events.Len() < l.MaxChanges
}

// RecordChange appends a change event at the current monotonic time.
// Callers should only call this after a corresponding CanChange()==true.
func (l *Limiter) RecordChange() {
	l.events.PushBack(l.clock.Now())
}

// TimeUntilAvailable returns how long until the next change would be
// allowed, zero if one is already allowed.
func (l *Limiter) TimeUntilAvailable() time.Duration {
	now := l.clock.Now()
	l.evictExpired(now)
	if l.events.Len() < l.MaxChanges {
		return 0
	}
	head := l.events.Front().Value.(time.Time)
	available := head.Add(time.Duration(l.WindowSeconds * float64(time.Second)))
	if available.Before(now) {
		return 0
	}
	return available.Sub(now)
}
