// Package controller applies a classified congestion zone to a single
// direction's current rate: multiplicative decrease in RED, a gentler
// decrease in confirmed SOFT_RED, hold in YELLOW, additive increase
// after a sustained GREEN run, always clamped to the zone's floor and
// the configured ceiling.
package controller

import "github.com/wanctl/wanctl/pkg/classifier"

// Floors holds the four zone-indexed floors plus the shared ceiling,
// weakly ordered floor_red <= floor_soft_red <= floor_yellow <= floor_green <= ceiling.
type Floors struct {
	Red     float64
	SoftRed float64
	Yellow  float64
	Green   float64
	Ceiling float64
}

func (f Floors) forZone(z classifier.Zone) float64 {
	switch z {
	case classifier.RED:
		return f.Red
	case classifier.SOFT_RED:
		return f.SoftRed
	case classifier.YELLOW:
		return f.Yellow
	default:
		return f.Green
	}
}

// Direction is the queue controller state for one traffic direction
// (download or upload). Each direction's controller shares no state
// with the other.
type Direction struct {
	Floors        Floors
	StepUp        float64
	FactorDown    float64
	FactorSoftRed float64

	CurrentRate float64
	streaks     classifier.Streaks
}

// NewDirection returns a Direction seeded at the given rate with the
// hysteresis streak requirements the classifier needs.
func NewDirection(startRate float64, floors Floors, stepUp, factorDown, factorSoftRed float64, redRequired, softRedRequired, greenRequired int) *Direction {
	return &Direction{
		Floors:        floors,
		StepUp:        stepUp,
		FactorDown:    factorDown,
		FactorSoftRed: factorSoftRed,
		CurrentRate:   startRate,
		streaks: classifier.Streaks{
			RedRequired:     redRequired,
			SoftRedRequired: softRedRequired,
			GreenRequired:   greenRequired,
		},
	}
}

// Apply runs one cycle's raw zone through hysteresis and the rate
// adjustment rules, mutates CurrentRate, and reports whether the rate
// actually changed (a no-op cycle issues no router write).
func (d *Direction) Apply(rawZone classifier.Zone) (newRate float64, zone classifier.Zone, changed bool) {
	zone = d.streaks.Observe(rawZone)
	prev := d.CurrentRate

	switch zone {
	case classifier.RED:
		d.CurrentRate = d.CurrentRate * d.FactorDown
	case classifier.SOFT_RED:
		d.CurrentRate = d.CurrentRate * d.FactorSoftRed
	case classifier.YELLOW:
		// hold
	case classifier.GREEN:
		if d.streaks.GreenStreak() >= requiredOrOne(d.streaks.GreenRequired) {
			d.CurrentRate = d.CurrentRate + d.StepUp
		}
	}

	floor := d.Floors.forZone(zone)
	d.CurrentRate = clamp(d.CurrentRate, floor, d.Floors.Ceiling)

	return d.CurrentRate, zone, d.CurrentRate != prev
}

func requiredOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
