package wanconfig

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SteeringTimersConfig holds the three FSM timer durations in seconds.
type SteeringTimersConfig struct {
	DegradeDurationS  float64 `yaml:"degrade_duration_s" validate:"required,gt=0"`
	HoldDownDurationS float64 `yaml:"hold_down_duration_s" validate:"required,gt=0"`
	RecoveryDurationS float64 `yaml:"recovery_duration_s" validate:"required,gt=0"`
}

// FlapConfig bounds how many toggles are tolerated in a rolling window
// before a penalty raises the steer threshold.
type FlapConfig struct {
	WindowMinutes       float64 `yaml:"flap_window_minutes" validate:"required,gt=0"`
	MaxToggles          int     `yaml:"max_toggles" validate:"required,gt=0"`
	PenaltyThresholdAdd float64 `yaml:"penalty_threshold_add" validate:"gte=0"`
	PenaltyDurationS    float64 `yaml:"penalty_duration_sec" validate:"gte=0"`
}

// SteeringConfig is the top-level wancd-steering configuration.
type SteeringConfig struct {
	WANName              string               `yaml:"wan_name" validate:"required"`
	Router               RouterConfig         `yaml:"router" validate:"required"`
	QueueName            string               `yaml:"queue_name"`
	SecondaryRuleComment string               `yaml:"secondary_rule_comment" validate:"required"`
	Measurement          MeasurementConfig    `yaml:"measurement" validate:"required"`
	Thresholds           ThresholdsConfig     `yaml:"thresholds" validate:"required"`
	Timers               SteeringTimersConfig `yaml:"timers" validate:"required"`
	Flap                 FlapConfig           `yaml:"flap" validate:"required"`

	SteerThreshold    float64 `yaml:"steer_threshold" validate:"required,gt=0"`
	RecoveryThreshold float64 `yaml:"recovery_threshold" validate:"required,gt=0"`
	DryRun            bool    `yaml:"dry_run"`

	// AutorateStateFile, when set, is read (never written) as the source
	// of the load RTT a colocated autorate daemon persists, instead of
	// steering running its own independent probe.
	AutorateStateFile string `yaml:"autorate_state_file"`

	StateFile    string  `yaml:"state_file" validate:"required"`
	LockFile     string  `yaml:"lock_file" validate:"required"`
	LockTimeoutS float64 `yaml:"lock_timeout"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	HealthListen  string `yaml:"health_listen"`
	MetricsDB     string `yaml:"metrics_db_path"`
	RetentionDays int    `yaml:"metrics_retention_days"`
}

// DefaultSteeringConfig returns a SteeringConfig with the same ambient
// defaults autorate's DefaultConfig uses, health bound to steering's own
// port per spec.md §6.
func DefaultSteeringConfig() *SteeringConfig {
	return &SteeringConfig{
		LockTimeoutS:  300,
		LogLevel:      "info",
		LogFormat:     "json",
		HealthListen:  ":9102",
		MetricsDB:     "/var/lib/wanctl/metrics.db",
		RetentionDays: 30,
	}
}

// LoadSteering reads, expands, unmarshals and validates a steering
// config file, applying the same deprecated-key handling as Load.
func LoadSteering(path string, log zerolog.Logger) (*SteeringConfig, error) {
	cfg := DefaultSteeringConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))

	var generic map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &generic); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyLegacySteeringKeys(generic, cfg, log)

	if err := ValidateSteering(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateSteering runs struct-tag validation plus the ordering
// invariant between the two thresholds.
func ValidateSteering(cfg *SteeringConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if cfg.RecoveryThreshold >= cfg.SteerThreshold {
		return fmt.Errorf("recovery_threshold (%v) must be less than steer_threshold (%v)", cfg.RecoveryThreshold, cfg.SteerThreshold)
	}
	return nil
}

func applyLegacySteeringKeys(generic map[string]interface{}, cfg *SteeringConfig, log zerolog.Logger) {
	thresholds, ok := generic["thresholds"].(map[string]interface{})
	if !ok {
		return
	}
	if v, ok := thresholds["bad_samples"]; ok {
		log.Warn().Msg("config key thresholds.bad_samples is deprecated, use thresholds.red_samples_required")
		if cfg.Thresholds.RedSamplesRequired == 0 {
			cfg.Thresholds.RedSamplesRequired = toInt(v)
		}
	}
	if v, ok := thresholds["good_samples"]; ok {
		log.Warn().Msg("config key thresholds.good_samples is deprecated, use thresholds.green_samples_required")
		if cfg.Thresholds.GreenSamplesRequired == 0 {
			cfg.Thresholds.GreenSamplesRequired = toInt(v)
		}
	}
}
