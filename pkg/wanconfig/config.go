// Package wanconfig loads the per-WAN YAML configuration shared by both
// daemon binaries: defaults first, then environment expansion, then
// unmarshal, then validation, following the load order the teacher's
// config loader used for its own nested config tree.
package wanconfig

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// RouterConfig names the RouterOS box and how to reach it.
type RouterConfig struct {
	Host   string `yaml:"host" validate:"required"`
	User   string `yaml:"user" validate:"required"`
	SSHKey string `yaml:"ssh_key" validate:"required"`
	// Type selects the transport: "ssh" (default) or "rest".
	Type string `yaml:"type"`
}

// QueuesConfig names the shaper queues this WAN's rates apply to.
type QueuesConfig struct {
	Download string `yaml:"download" validate:"required"`
	Upload   string `yaml:"upload" validate:"required"`
}

// DirectionRates holds the per-zone floors, ceiling and step sizes for
// one traffic direction (download or upload).
type DirectionRates struct {
	FloorGreenMbps   float64 `yaml:"floor_green_mbps" validate:"gte=0"`
	FloorYellowMbps  float64 `yaml:"floor_yellow_mbps" validate:"gte=0"`
	FloorSoftRedMbps float64 `yaml:"floor_soft_red_mbps" validate:"gte=0"`
	FloorRedMbps     float64 `yaml:"floor_red_mbps" validate:"gte=0"`
	CeilingMbps      float64 `yaml:"ceiling_mbps" validate:"required,gt=0"`
	StepUpMbps       float64 `yaml:"step_up_mbps" validate:"required,gt=0"`
	FactorDown       float64 `yaml:"factor_down" validate:"required,gt=0,lt=1"`
	// FactorSoftRed defaults to sqrt(factor_down) when left at zero.
	FactorSoftRed float64 `yaml:"factor_soft_red" validate:"gte=0,lt=1"`
}

// AutorateConfig holds both directions' rate tables.
type AutorateConfig struct {
	Download DirectionRates `yaml:"download" validate:"required"`
	Upload   DirectionRates `yaml:"upload" validate:"required"`
}

// ThresholdsConfig holds the bloat thresholds and hysteresis streak
// lengths that drive the congestion classifier.
type ThresholdsConfig struct {
	TargetBloatMs        float64 `yaml:"target_bloat_ms" validate:"required,gt=0"`
	WarnBloatMs          float64 `yaml:"warn_bloat_ms" validate:"required,gt=0"`
	HardRedBloatMs       float64 `yaml:"hard_red_bloat_ms" validate:"required,gt=0"`
	RedSamplesRequired   int     `yaml:"red_samples_required" validate:"required,gt=0"`
	GreenSamplesRequired int     `yaml:"green_samples_required" validate:"required,gt=0"`
}

// MeasurementConfig controls how RTT is sampled each cycle.
type MeasurementConfig struct {
	PingHosts      []string `yaml:"ping_hosts" validate:"required,min=1"`
	PingTimeoutS   float64  `yaml:"ping_timeout_s" validate:"required,gt=0"`
	CycleIntervalS float64  `yaml:"cycle_interval_s" validate:"required,gt=0"`
}

// Config is the top-level wancd-autorate configuration for one WAN.
type Config struct {
	WANName     string            `yaml:"wan_name" validate:"required"`
	Router      RouterConfig      `yaml:"router" validate:"required"`
	Queues      QueuesConfig      `yaml:"queues" validate:"required"`
	Autorate    AutorateConfig    `yaml:"autorate" validate:"required"`
	Thresholds  ThresholdsConfig  `yaml:"thresholds" validate:"required"`
	Measurement MeasurementConfig `yaml:"measurement" validate:"required"`

	BaselineRTTInitialMs float64 `yaml:"baseline_rtt_initial" validate:"gte=0"`
	BaselineRTTMinMs     float64 `yaml:"baseline_rtt_min" validate:"gte=0"`
	BaselineRTTMaxMs     float64 `yaml:"baseline_rtt_max" validate:"gte=0"`

	StateFile       string  `yaml:"state_file" validate:"required"`
	LockFile        string  `yaml:"lock_file" validate:"required"`
	LockTimeoutS    float64 `yaml:"lock_timeout"`
	FallbackMaxAgeS float64 `yaml:"fallback_max_age_s"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	HealthListen  string `yaml:"health_listen"`
	MetricsDB     string `yaml:"metrics_db_path"`
	RetentionDays int    `yaml:"metrics_retention_days"`
}

// DefaultConfig returns a Config pre-populated with the values that are
// safe to assume before any file is read.
func DefaultConfig() *Config {
	return &Config{
		LockTimeoutS:  300,
		LogLevel:      "info",
		LogFormat:     "json",
		HealthListen:  "127.0.0.1:9101",
		MetricsDB:     "/var/lib/wanctl/metrics.db",
		RetentionDays: 30,
	}
}

// Load reads path, expands environment variables, unmarshals onto the
// defaults, maps deprecated keys, and validates the result.
func Load(path string, log zerolog.Logger) (*Config, error) {
	cfg := DefaultConfig()

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

	applyLegacyKeys(generic, cfg, log)
	applyComputedDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyComputedDefaults(cfg *Config) {
	if cfg.FallbackMaxAgeS <= 0 {
		cfg.FallbackMaxAgeS = 3 * cfg.Measurement.CycleIntervalS
	}
	if cfg.FallbackMaxAgeS < cfg.Measurement.CycleIntervalS {
		cfg.FallbackMaxAgeS = cfg.Measurement.CycleIntervalS
	}
	if cfg.Autorate.Download.FactorSoftRed == 0 {
		cfg.Autorate.Download.FactorSoftRed = math.Sqrt(cfg.Autorate.Download.FactorDown)
	}
	if cfg.Autorate.Upload.FactorSoftRed == 0 {
		cfg.Autorate.Upload.FactorSoftRed = math.Sqrt(cfg.Autorate.Upload.FactorDown)
	}
}

// Validate runs struct-tag validation plus the cross-field ordering
// invariants validator tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := validateDirectionFloors("download", cfg.Autorate.Download); err != nil {
		return err
	}
	if err := validateDirectionFloors("upload", cfg.Autorate.Upload); err != nil {
		return err
	}
	if cfg.BaselineRTTMinMs > 0 && cfg.BaselineRTTMaxMs > 0 && cfg.BaselineRTTMinMs >= cfg.BaselineRTTMaxMs {
		return fmt.Errorf("baseline_rtt_min (%v) must be less than baseline_rtt_max (%v)", cfg.BaselineRTTMinMs, cfg.BaselineRTTMaxMs)
	}
	if cfg.BaselineRTTInitialMs > 0 {
		if cfg.BaselineRTTMinMs > 0 && cfg.BaselineRTTInitialMs < cfg.BaselineRTTMinMs {
			return fmt.Errorf("baseline_rtt_initial (%v) below baseline_rtt_min (%v)", cfg.BaselineRTTInitialMs, cfg.BaselineRTTMinMs)
		}
		if cfg.BaselineRTTMaxMs > 0 && cfg.BaselineRTTInitialMs > cfg.BaselineRTTMaxMs {
			return fmt.Errorf("baseline_rtt_initial (%v) above baseline_rtt_max (%v)", cfg.BaselineRTTInitialMs, cfg.BaselineRTTMaxMs)
		}
	}
	return nil
}

func validateDirectionFloors(direction string, d DirectionRates) error {
	if d.FloorRedMbps <= d.FloorSoftRedMbps &&
		d.FloorSoftRedMbps <= d.FloorYellowMbps &&
		d.FloorYellowMbps <= d.FloorGreenMbps &&
		d.FloorGreenMbps <= d.CeilingMbps {
		return nil
	}
	return fmt.Errorf("%s floors must satisfy floor_red <= floor_soft_red <= floor_yellow <= floor_green <= ceiling, got %v <= %v <= %v <= %v <= %v",
		direction, d.FloorRedMbps, d.FloorSoftRedMbps, d.FloorYellowMbps, d.FloorGreenMbps, d.CeilingMbps)
}

// applyLegacyKeys maps the three deprecated knobs onto their current
// equivalents, warning once per key per load.
func applyLegacyKeys(generic map[string]interface{}, cfg *Config, log zerolog.Logger) {
	if thresholds, ok := generic["thresholds"].(map[string]interface{}); ok {
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

	if autorate, ok := generic["autorate"].(map[string]interface{}); ok {
		applyLegacyFloor(autorate, "download", &cfg.Autorate.Download, log)
		applyLegacyFloor(autorate, "upload", &cfg.Autorate.Upload, log)
	}
}

func applyLegacyFloor(autorate map[string]interface{}, direction string, d *DirectionRates, log zerolog.Logger) {
	section, ok := autorate[direction].(map[string]interface{})
	if !ok {
		return
	}
	v, ok := section["floor_mbps"]
	if !ok {
		return
	}
	log.Warn().Str("direction", direction).Msg("config key floor_mbps is deprecated, use the per-zone floor_*_mbps keys")
	floor := toFloat(v)
	if d.FloorGreenMbps == 0 {
		d.FloorGreenMbps = floor
	}
	if d.FloorYellowMbps == 0 {
		d.FloorYellowMbps = floor
	}
	if d.FloorSoftRedMbps == 0 {
		d.FloorSoftRedMbps = floor
	}
	if d.FloorRedMbps == 0 {
		d.FloorRedMbps = floor
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
