// Package steering implements the primary-WAN congestion confidence
// score, the degrade/hold-down/recovery timer trio, flap detection, and
// the two-state FSM that toggles a firewall rule to divert traffic to a
// secondary WAN.
package steering

import "github.com/wanctl/wanctl/pkg/classifier"

// Contributor is one named rule that adds to the cycle's confidence
// score, the shape this package inherited from a results-accumulator
// pattern used elsewhere in the corpus for named, independently scored
// checks.
type Contributor struct {
	Name   string
	Points int
}

// Signals is one cycle's inputs to the confidence scorer.
type Signals struct {
	Zone          classifier.Zone
	SustainedZone classifier.Zone // the zone held across the last several cycles
	DropCount     uint64
	QueueDepth    uint64
}

// ScoreWeights controls how many points each contributor adds. Zero
// values disable a contributor entirely.
type ScoreWeights struct {
	RedZone         int
	SustainedYellow int
	HighDrops       int
	QueueDeep       int
	HighDropsMin    uint64
	QueueDeepMin    uint64
}

// DefaultScoreWeights matches the example contributor values named in
// the confidence scorer's design: RED_ZONE +40, SUSTAINED_YELLOW +15,
// HIGH_DROPS +20, QUEUE_DEEP +15.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		RedZone:         40,
		SustainedYellow: 15,
		HighDrops:       20,
		QueueDeep:       15,
		HighDropsMin:    1,
		QueueDeepMin:    1,
	}
}

// Score computes a fresh 0-100 integer confidence score for one cycle's
// signals, along with the named contributors that fired — the score is
// never sampled or carried over, it is recomputed from scratch each
// cycle.
func Score(s Signals, w ScoreWeights) (int, []Contributor) {
	var contributors []Contributor
	total := 0

	add := func(name string, points int) {
		if points == 0 {
			return
		}
		contributors = append(contributors, Contributor{Name: name, Points: points})
		total += points
	}

	if s.Zone == classifier.RED {
		add("RED_ZONE", w.RedZone)
	}
	if s.SustainedZone == classifier.YELLOW {
		add("SUSTAINED_YELLOW", w.SustainedYellow)
	}
	if s.DropCount >= w.HighDropsMin && w.HighDropsMin > 0 {
		add("HIGH_DROPS", w.HighDrops)
	}
	if s.QueueDepth >= w.QueueDeepMin && w.QueueDeepMin > 0 {
		add("QUEUE_DEEP", w.QueueDeep)
	}

	if total > 100 {
		total = 100
	}
	return total, contributors
}
