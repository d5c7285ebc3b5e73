package steering

import "context"

// State is the steering FSM's two-value state.
type State string

const (
	PrimaryGood     State = "PRIMARY_GOOD"
	PrimaryDegraded State = "PRIMARY_DEGRADED"
)

// RuleToggler is the narrow router surface the FSM needs: enabling or
// disabling the one named mangle rule that diverts traffic.
type RuleToggler interface {
	EnableRule(ctx context.Context, comment string) error
	DisableRule(ctx context.Context, comment string) error
}

// FSM drives the PRIMARY_GOOD/PRIMARY_DEGRADED state machine described
// in the confidence/timer design: a sustained high score degrades
// service to the secondary WAN, a sustained recovery drains back.
type FSM struct {
	State State

	SteerThreshold    float64
	RecoveryThreshold float64
	RuleComment       string
	DryRun            bool

	DegradeTimer  *Timer
	HoldDownTimer *Timer
	RecoveryTimer *Timer

	Flap         *FlapDetector
	Toggler      RuleToggler
	OnTransition func(from, to State)
}

// Tick runs one cycle of the FSM given this cycle's confidence score and
// the additional "cake is clean" recovery gate signal.
func (f *FSM) Tick(ctx context.Context, cycleIntervalSeconds float64, score int, cakeGreenAndNoDrops bool) error {
	threshold := f.SteerThreshold
	if f.Flap != nil {
		threshold += f.Flap.PenaltyThreshold()
	}

	switch f.State {
	case PrimaryGood:
		if float64(score) >= threshold {
			if !f.DegradeTimer.Running() {
				f.DegradeTimer.Start()
			}
		} else {
			f.DegradeTimer.Reset()
		}
		if f.DegradeTimer.Tick(cycleIntervalSeconds) {
			return f.transitionTo(ctx, PrimaryDegraded)
		}

	case PrimaryDegraded:
		if f.HoldDownTimer.Running() {
			f.HoldDownTimer.Tick(cycleIntervalSeconds)
			return nil
		}
		if float64(score) <= f.RecoveryThreshold && cakeGreenAndNoDrops {
			if !f.RecoveryTimer.Running() {
				f.RecoveryTimer.Start()
			}
		} else {
			f.RecoveryTimer.Reset()
		}
		if f.RecoveryTimer.Tick(cycleIntervalSeconds) {
			return f.transitionTo(ctx, PrimaryGood)
		}
	}
	return nil
}

func (f *FSM) transitionTo(ctx context.Context, to State) error {
	from := f.State
	f.State = to

	var err error
	if !f.DryRun {
		if to == PrimaryDegraded {
			err = f.Toggler.EnableRule(ctx, f.RuleComment)
		} else {
			err = f.Toggler.DisableRule(ctx, f.RuleComment)
		}
	}

	if to == PrimaryDegraded {
		f.HoldDownTimer.Start()
		f.RecoveryTimer.Reset()
	} else {
		f.HoldDownTimer.Reset()
	}

	if f.Flap != nil {
		f.Flap.RecordTransition()
	}
	if f.OnTransition != nil {
		f.OnTransition(from, to)
	}
	return err
}
