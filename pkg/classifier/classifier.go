package classifier

import "github.com/wanctl/wanctl/pkg/queuestats"

// Thresholds holds the autorate bloat thresholds, in milliseconds of RTT
// delta above baseline.
type Thresholds struct {
	TargetBloatMs  float64
	WarnBloatMs    float64
	HardRedBloatMs float64
}

// Classify maps an RTT delta onto a Zone using the plain autorate
// thresholds; it does not apply hysteresis, which is the Streaks'
// responsibility.
func (t Thresholds) Classify(deltaMs float64) Zone {
	switch {
	case deltaMs < t.TargetBloatMs:
		return GREEN
	case deltaMs < t.WarnBloatMs:
		return YELLOW
	case deltaMs < t.HardRedBloatMs:
		return SOFT_RED
	default:
		return RED
	}
}

// Streaks implements the asymmetric hysteresis a raw zone classification
// passes through before it is acted on: a single RED sample takes
// effect immediately, SOFT_RED needs a short confirmation streak, and
// returning to GREEN needs a longer one.
type Streaks struct {
	RedRequired     int
	SoftRedRequired int
	GreenRequired   int

	redStreak     int
	softRedStreak int
	greenStreak   int
}

// Observe feeds one cycle's raw Zone through the streak counters and
// returns the zone that should actually drive the controller this cycle.
func (s *Streaks) Observe(raw Zone) Zone {
	switch raw {
	case RED:
		s.redStreak++
		s.softRedStreak = 0
		s.greenStreak = 0
		return RED
	case SOFT_RED:
		s.redStreak = 0
		s.softRedStreak++
		s.greenStreak = 0
		if s.softRedStreak >= max(1, s.SoftRedRequired) {
			return SOFT_RED
		}
		return YELLOW
	case YELLOW:
		s.redStreak = 0
		s.softRedStreak = 0
		s.greenStreak = 0
		return YELLOW
	default: // GREEN
		s.redStreak = 0
		s.softRedStreak = 0
		s.greenStreak++
		return GREEN
	}
}

// GreenStreak reports the current run length of consecutive GREEN
// observations, the value the queue controller gates step-up on.
func (s *Streaks) GreenStreak() int {
	return s.greenStreak
}

// SteeringThresholds mirror the autorate thresholds but additionally
// require a drop/queue-depth confirmation before declaring RED, per the
// "compounds a boolean confirmation" rule for the primary-WAN monitor.
type SteeringThresholds struct {
	GreenRTTMs     float64
	YellowRTTMs    float64
	RedRTTMs       float64
	MinDropsRed    uint64
	MinQueueRed    uint64
	MinQueueYellow uint64
}

// ClassifySteering maps an RTT reading plus the current cycle's queue
// delta onto a Zone for the steering confidence scorer's RTT signal.
func (t SteeringThresholds) ClassifySteering(rttMs float64, d queuestats.Delta) Zone {
	switch {
	case rttMs >= t.RedRTTMs && d.Dropped >= t.MinDropsRed && d.QueuedPackets >= t.MinQueueRed:
		return RED
	case rttMs >= t.YellowRTTMs && d.QueuedPackets >= t.MinQueueYellow:
		return SOFT_RED
	case rttMs >= t.GreenRTTMs:
		return YELLOW
	default:
		return GREEN
	}
}
