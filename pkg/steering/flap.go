package steering

import (
	"container/list"
	"time"
)

// FlapDetector watches the rate of FSM transitions and escalates the
// steer threshold with a temporary penalty once too many toggles happen
// within a rolling window.
type FlapDetector struct {
	WindowMinutes       float64
	MaxToggles          int
	PenaltyThresholdAdd float64
	PenaltyDurationSec  float64

	now    func() time.Time
	events *list.List // of time.Time

	penaltyUntil time.Time
	inPenalty    bool
}

// NewFlapDetector returns a FlapDetector using the system clock.
func NewFlapDetector(windowMinutes float64, maxToggles int, penaltyThresholdAdd, penaltyDurationSec float64) *FlapDetector {
	return &FlapDetector{
		WindowMinutes:       windowMinutes,
		MaxToggles:          maxToggles,
		PenaltyThresholdAdd: penaltyThresholdAdd,
		PenaltyDurationSec:  penaltyDurationSec,
		now:                 time.Now,
		events:              list.New(),
	}
}

func (f *FlapDetector) evict(now time.Time) {
	cutoff := now.Add(-time.Duration(f.WindowMinutes * float64(time.Minute)))
	for f.events.Len() > 0 {
		front := f.events.Front()
		if front.Value.(time.Time).Before(cutoff) {
			f.events.Remove(front)
			continue
		}
		break
	}
}

// RecordTransition appends a transition event and re-evaluates whether
// a penalty should now be active.
func (f *FlapDetector) RecordTransition() {
	now := f.now()
	f.events.PushBack(now)
	f.evict(now)
	if f.events.Len() > f.MaxToggles {
		f.inPenalty = true
		f.penaltyUntil = now.Add(time.Duration(f.PenaltyDurationSec * float64(time.Second)))
	}
}

// PenaltyThreshold returns the amount to add to the configured
// steer_threshold this cycle: PenaltyThresholdAdd while a penalty is
// active, zero once it has expired.
func (f *FlapDetector) PenaltyThreshold() float64 {
	now := f.now()
	if f.inPenalty && now.After(f.penaltyUntil) {
		f.inPenalty = false
	}
	if f.inPenalty {
		return f.PenaltyThresholdAdd
	}
	return 0
}

// InPenalty reports whether a flap penalty is currently in effect.
func (f *FlapDetector) InPenalty() bool {
	f.PenaltyThreshold() // refresh expiry
	return f.inPenalty
}
