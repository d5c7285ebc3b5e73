// Package baseline maintains the slow EWMA baseline RTT a WAN is
// compared against, updating only on cycles judged idle and rejecting
// any update that would push the result outside configured bounds.
package baseline

import "math"

// Estimator tracks baseline RTT and the faster load RTT EWMA used for
// idle detection and display.
type Estimator struct {
	Alpha float64 // baseline update weight, ~0.05
	Beta  float64 // load RTT EWMA weight, faster than alpha

	MinMs float64
	MaxMs float64

	// IdleDeltaMs is the |rtt - loadRTT| tolerance below which a cycle
	// is considered idle enough to feed the baseline.
	IdleDeltaMs float64
	// IdleMaxQueuedPackets bounds how much queue occupancy is still
	// consistent with "idle".
	IdleMaxQueuedPackets uint64

	baselineMs float64
	loadRTTMs  float64
}

// New returns an Estimator seeded at initialMs, clamped into [minMs, maxMs].
func New(initialMs, minMs, maxMs, alpha, beta, idleDeltaMs float64, idleMaxQueuedPackets uint64) *Estimator {
	seed := math.Min(math.Max(initialMs, minMs), maxMs)
	return &Estimator{
		Alpha:                alpha,
		Beta:                 beta,
		MinMs:                minMs,
		MaxMs:                maxMs,
		IdleDeltaMs:          idleDeltaMs,
		IdleMaxQueuedPackets: idleMaxQueuedPackets,
		baselineMs:           seed,
		loadRTTMs:            seed,
	}
}

// BaselineMs returns the current baseline estimate.
func (e *Estimator) BaselineMs() float64 { return e.baselineMs }

// LoadRTTMs returns the current load RTT EWMA.
func (e *Estimator) LoadRTTMs() float64 { return e.loadRTTMs }

// Result reports what Observe did with one cycle's RTT sample.
type Result struct {
	DeltaMs       float64
	Idle          bool
	BaselineMoved bool
	Rejected      bool
}

// Observe updates the load RTT EWMA unconditionally, then — if the cycle
// looks idle (RTT close to the load EWMA, no drops, shallow queue) —
// attempts the slow baseline update, rejecting it if the result would
// leave the configured bounds.
func (e *Estimator) Observe(rttMs float64, dropped uint64, queuedPackets uint64) Result {
	e.loadRTTMs = (1-e.Beta)*e.loadRTTMs + e.Beta*rttMs

	res := Result{DeltaMs: rttMs - e.baselineMs}

	idle := math.Abs(rttMs-e.loadRTTMs) < e.IdleDeltaMs && dropped == 0 && queuedPackets < e.IdleMaxQueuedPackets
	res.Idle = idle
	if !idle {
		return res
	}

	candidate := (1-e.Alpha)*e.baselineMs + e.Alpha*rttMs
	if candidate < e.MinMs || candidate > e.MaxMs {
		res.Rejected = true
		return res
	}

	e.baselineMs = candidate
	res.BaselineMoved = true
	return res
}
