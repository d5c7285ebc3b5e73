package steering_test

import (
	"context"
	"testing"

	"github.com/wanctl/wanctl/pkg/steering"
)

type fakeToggler struct {
	enableCalls  int
	disableCalls int
}

func (f *fakeToggler) EnableRule(ctx context.Context, comment string) error {
	f.enableCalls++
	return nil
}

func (f *fakeToggler) DisableRule(ctx context.Context, comment string) error {
	f.disableCalls++
	return nil
}

func newFSM(dryRun bool, toggler steering.RuleToggler) *steering.FSM {
	return &steering.FSM{
		State:             steering.PrimaryGood,
		SteerThreshold:    40,
		RecoveryThreshold: 10,
		RuleComment:       "wanctl-secondary",
		DryRun:            dryRun,
		DegradeTimer:      steering.NewTimer(2.0),
		HoldDownTimer:     steering.NewTimer(5.0),
		RecoveryTimer:     steering.NewTimer(3.0),
		Toggler:           toggler,
	}
}

// TestFSM_DegradeTimerExpiresAtCycle41 reproduces a primary WAN stuck in
// RED for 3 seconds with sustain_duration=2s and cycle_interval=0.05s:
// the degrade_timer starts at 2.0 and, ticking by 0.05 every cycle,
// reaches exactly 0.0 at cycle 40 (not yet expired) and expires at
// cycle 41. In dry-run, the transition happens and fires but the rule
// toggle is never called.
func TestFSM_DegradeTimerExpiresAtCycle41(t *testing.T) {
	toggler := &fakeToggler{}
	fsm := newFSM(true, toggler)

	const cycleInterval = 0.05
	redScore := 80 // above steer_threshold=40

	transitioned := false
	for cycle := 1; cycle <= 41; cycle++ {
		err := fsm.Tick(context.Background(), cycleInterval, redScore, false)
		if err != nil {
			t.Fatalf("cycle %d: Tick() error = %v", cycle, err)
		}
		if fsm.State == steering.PrimaryDegraded {
			if cycle != 41 {
				t.Fatalf("FSM transitioned to PRIMARY_DEGRADED at cycle %d, want cycle 41", cycle)
			}
			transitioned = true
			break
		}
	}

	if !transitioned {
		t.Fatal("FSM never transitioned to PRIMARY_DEGRADED within 41 cycles")
	}
	if toggler.enableCalls != 0 {
		t.Errorf("enableCalls = %d, want 0 in dry-run", toggler.enableCalls)
	}
}

func TestFSM_NonDryRunCallsEnableRuleOnDegrade(t *testing.T) {
	toggler := &fakeToggler{}
	fsm := newFSM(false, toggler)

	for cycle := 1; cycle <= 41; cycle++ {
		if err := fsm.Tick(context.Background(), 0.05, 80, false); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}

	if fsm.State != steering.PrimaryDegraded {
		t.Fatalf("State = %v, want PRIMARY_DEGRADED", fsm.State)
	}
	if toggler.enableCalls != 1 {
		t.Errorf("enableCalls = %d, want 1", toggler.enableCalls)
	}
}

func TestFSM_LowScoreResetsDegradeTimer(t *testing.T) {
	toggler := &fakeToggler{}
	fsm := newFSM(false, toggler)

	for cycle := 1; cycle <= 30; cycle++ {
		fsm.Tick(context.Background(), 0.05, 80, false)
	}
	// score drops below threshold before the timer expires; it must reset
	fsm.Tick(context.Background(), 0.05, 0, false)
	if fsm.DegradeTimer.Running() {
		t.Fatal("degrade_timer still running after score dropped below threshold")
	}

	for cycle := 1; cycle <= 41; cycle++ {
		fsm.Tick(context.Background(), 0.05, 0, false)
	}
	if fsm.State != steering.PrimaryGood {
		t.Fatalf("State = %v, want PRIMARY_GOOD after sustained low score", fsm.State)
	}
	if toggler.enableCalls != 0 {
		t.Errorf("enableCalls = %d, want 0", toggler.enableCalls)
	}
}

func TestFSM_HoldDownBlocksImmediateRecovery(t *testing.T) {
	toggler := &fakeToggler{}
	fsm := newFSM(false, toggler)
	fsm.State = steering.PrimaryDegraded
	fsm.HoldDownTimer.Start()

	// score is well below recovery_threshold and cake is clean, but
	// hold_down_timer (5s) has not elapsed yet at cycle_interval=0.05s
	for cycle := 1; cycle <= 50; cycle++ {
		fsm.Tick(context.Background(), 0.05, 0, true)
	}
	if fsm.State != steering.PrimaryDegraded {
		t.Fatalf("State = %v, want still PRIMARY_DEGRADED during hold-down", fsm.State)
	}
	if fsm.RecoveryTimer.Running() {
		t.Fatal("recovery_timer must not start before hold_down_timer expires")
	}
}

func TestFSM_RecoversAfterHoldDownAndSustainedCleanSignal(t *testing.T) {
	toggler := &fakeToggler{}
	fsm := newFSM(false, toggler)
	fsm.State = steering.PrimaryDegraded
	fsm.HoldDownTimer.Start()

	for cycle := 1; cycle <= 101; cycle++ { // 5s hold-down / 0.05s: zero at cycle 100, expired at 101
		fsm.Tick(context.Background(), 0.05, 0, true)
	}
	if fsm.HoldDownTimer.Running() {
		t.Fatal("hold_down_timer should have expired")
	}

	for cycle := 1; cycle <= 61; cycle++ { // 3s recovery / 0.05s: zero at cycle 60, expired at 61
		fsm.Tick(context.Background(), 0.05, 0, true)
	}
	if fsm.State != steering.PrimaryGood {
		t.Fatalf("State = %v, want PRIMARY_GOOD after recovery_timer expiry", fsm.State)
	}
	if toggler.disableCalls != 1 {
		t.Errorf("disableCalls = %d, want 1", toggler.disableCalls)
	}
}

func TestFSM_FlapPenaltyRaisesEffectiveThreshold(t *testing.T) {
	toggler := &fakeToggler{}
	fsm := newFSM(true, toggler)
	flap := steering.NewFlapDetector(10, 1, 20, 60)
	fsm.Flap = flap

	// force enough transitions to trip the flap detector
	flap.RecordTransition()
	flap.RecordTransition()

	if flap.PenaltyThreshold() != 20 {
		t.Fatalf("PenaltyThreshold() = %v, want 20 after exceeding max_toggles", flap.PenaltyThreshold())
	}

	// a score of 50 would trip steer_threshold=40 alone, but not 40+20=60
	for cycle := 1; cycle <= 41; cycle++ {
		fsm.Tick(context.Background(), 0.05, 50, false)
	}
	if fsm.State != steering.PrimaryGood {
		t.Fatalf("State = %v, want PRIMARY_GOOD: flap penalty should have suppressed the degrade", fsm.State)
	}
}
