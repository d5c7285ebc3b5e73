package wanconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wanctl/wanctl/pkg/wanconfig"
)

const validSteeringYAML = `
wan_name: primary
router: {host: h, user: u, ssh_key: k}
secondary_rule_comment: wanctl-divert
measurement:
  ping_hosts: ["9.9.9.9"]
  ping_timeout_s: 1
  cycle_interval_s: 0.05
thresholds:
  target_bloat_ms: 15
  warn_bloat_ms: 30
  hard_red_bloat_ms: 80
  red_samples_required: 3
  green_samples_required: 5
timers:
  degrade_duration_s: 2
  hold_down_duration_s: 30
  recovery_duration_s: 10
flap:
  flap_window_minutes: 10
  max_toggles: 3
  penalty_threshold_add: 20
  penalty_duration_sec: 600
steer_threshold: 60
recovery_threshold: 30
dry_run: true
state_file: /tmp/steer.json
lock_file: /tmp/steer.lock
`

func TestLoadSteering_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steer.yaml")
	if err := os.WriteFile(path, []byte(validSteeringYAML), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	cfg, err := wanconfig.LoadSteering(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSteering: %v", err)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true")
	}
	if cfg.Timers.DegradeDurationS != 2 {
		t.Errorf("Timers.DegradeDurationS = %v, want 2", cfg.Timers.DegradeDurationS)
	}
	if cfg.HealthListen != ":9102" {
		t.Errorf("HealthListen = %q, want default :9102", cfg.HealthListen)
	}
}

func TestValidateSteering_ThresholdOrdering(t *testing.T) {
	cfg := wanconfig.DefaultSteeringConfig()
	cfg.WANName = "primary"
	cfg.Router = wanconfig.RouterConfig{Host: "h", User: "u", SSHKey: "k"}
	cfg.SecondaryRuleComment = "wanctl-divert"
	cfg.Measurement = wanconfig.MeasurementConfig{PingHosts: []string{"9.9.9.9"}, PingTimeoutS: 1, CycleIntervalS: 1}
	cfg.Thresholds = wanconfig.ThresholdsConfig{TargetBloatMs: 15, WarnBloatMs: 30, HardRedBloatMs: 80, RedSamplesRequired: 3, GreenSamplesRequired: 5}
	cfg.Timers = wanconfig.SteeringTimersConfig{DegradeDurationS: 2, HoldDownDurationS: 30, RecoveryDurationS: 10}
	cfg.Flap = wanconfig.FlapConfig{WindowMinutes: 10, MaxToggles: 3}
	cfg.StateFile = "/tmp/s.json"
	cfg.LockFile = "/tmp/s.lock"

	cfg.SteerThreshold = 30
	cfg.RecoveryThreshold = 60 // inverted: recovery above steer
	if err := wanconfig.ValidateSteering(cfg); err == nil {
		t.Fatal("ValidateSteering: want error for recovery_threshold >= steer_threshold, got nil")
	}
}
