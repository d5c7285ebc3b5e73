package classifier_test

import (
	"testing"

	"github.com/wanctl/wanctl/pkg/classifier"
)

func TestThresholds_Classify(t *testing.T) {
	th := classifier.Thresholds{TargetBloatMs: 15, WarnBloatMs: 30, HardRedBloatMs: 80}
	cases := []struct {
		delta float64
		want  classifier.Zone
	}{
		{5, classifier.GREEN},
		{14.9, classifier.GREEN},
		{15, classifier.YELLOW},
		{29.9, classifier.YELLOW},
		{30, classifier.SOFT_RED},
		{79.9, classifier.SOFT_RED},
		{80, classifier.RED},
		{500, classifier.RED},
	}
	for _, c := range cases {
		if got := th.Classify(c.delta); got != c.want {
			t.Errorf("Classify(%v) = %v, want %v", c.delta, got, c.want)
		}
	}
}

func TestStreaks_RedActsImmediately(t *testing.T) {
	s := &classifier.Streaks{RedRequired: 1, SoftRedRequired: 2, GreenRequired: 5}
	if got := s.Observe(classifier.RED); got != classifier.RED {
		t.Fatalf("Observe(RED) = %v, want RED on the very first sample", got)
	}
}

func TestStreaks_SoftRedNeedsConfirmation(t *testing.T) {
	s := &classifier.Streaks{RedRequired: 1, SoftRedRequired: 3, GreenRequired: 5}
	if got := s.Observe(classifier.SOFT_RED); got != classifier.YELLOW {
		t.Fatalf("Observe(SOFT_RED) first sample = %v, want YELLOW (unconfirmed)", got)
	}
	if got := s.Observe(classifier.SOFT_RED); got != classifier.YELLOW {
		t.Fatalf("Observe(SOFT_RED) second sample = %v, want YELLOW (unconfirmed)", got)
	}
	if got := s.Observe(classifier.SOFT_RED); got != classifier.SOFT_RED {
		t.Fatalf("Observe(SOFT_RED) third sample = %v, want SOFT_RED (confirmed)", got)
	}
}

func TestStreaks_GreenRequiresSustainedRun(t *testing.T) {
	s := &classifier.Streaks{RedRequired: 1, SoftRedRequired: 1, GreenRequired: 3}
	s.Observe(classifier.RED)
	for i := 0; i < 2; i++ {
		s.Observe(classifier.GREEN)
		if s.GreenStreak() >= 3 {
			t.Fatalf("GreenStreak() = %d after %d samples, want < 3", s.GreenStreak(), i+1)
		}
	}
	s.Observe(classifier.GREEN)
	if s.GreenStreak() != 3 {
		t.Fatalf("GreenStreak() = %d after 3 consecutive GREEN, want 3", s.GreenStreak())
	}
}

func TestStreaks_RedInterruptsGreenRun(t *testing.T) {
	s := &classifier.Streaks{RedRequired: 1, SoftRedRequired: 1, GreenRequired: 3}
	s.Observe(classifier.GREEN)
	s.Observe(classifier.GREEN)
	s.Observe(classifier.RED)
	if s.GreenStreak() != 0 {
		t.Fatalf("GreenStreak() = %d after a RED sample, want 0 (reset)", s.GreenStreak())
	}
}
