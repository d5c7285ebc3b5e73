package ratelimiter_test

import (
	"testing"
	"time"

	"github.com/wanctl/wanctl/pkg/ratelimiter"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLimiter_AllowsUpToMax(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	l := ratelimiter.NewWithClock(3, 60, clock)

	for i := 0; i < 3; i++ {
		if !l.CanChange() {
			t.Fatalf("CanChange() = false on change %d, want true", i+1)
		}
		l.RecordChange()
	}
	if l.CanChange() {
		t.Fatal("CanChange() = true after MaxChanges reached within window, want false")
	}
}

func TestLimiter_EvictsExpiredEntries(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	l := ratelimiter.NewWithClock(1, 10, clock)

	l.RecordChange()
	if l.CanChange() {
		t.Fatal("CanChange() = true immediately after recording, want false (window still holds the entry)")
	}
	clock.advance(11 * time.Second)
	if !l.CanChange() {
		t.Fatal("CanChange() = false after the window elapsed, want true")
	}
}

func TestLimiter_TimeUntilAvailable(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	l := ratelimiter.NewWithClock(1, 10, clock)
	l.RecordChange()

	wait := l.TimeUntilAvailable()
	if wait != 10*time.Second {
		t.Fatalf("TimeUntilAvailable() = %v, want 10s", wait)
	}
	clock.advance(5 * time.Second)
	wait = l.TimeUntilAvailable()
	if wait != 5*time.Second {
		t.Fatalf("TimeUntilAvailable() = %v, want 5s after 5s elapsed", wait)
	}
}
