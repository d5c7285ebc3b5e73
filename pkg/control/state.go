// Package control implements the per-WAN control loop: probe RTT, read
// queue deltas, classify congestion, update the baseline, compute and
// apply rates, drive the steering FSM when present, write metrics, and
// persist state — all under a shutdown-interruptible sleep.
package control

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wanctl/wanctl/pkg/classifier"
)

// State is the persisted per-WAN snapshot, atomically rewritten after
// every successful cycle.
type State struct {
	BaselineRTTMs   float64         `json:"baseline_rtt"`
	LoadRTTMs       float64         `json:"load_rtt"`
	DownloadRateBps float64         `json:"download_rate_bps"`
	UploadRateBps   float64         `json:"upload_rate_bps"`
	Zone            classifier.Zone `json:"zone"`
	LastCycleTS     int64           `json:"last_cycle_ts"`
}

// LoadState reads a previously persisted state file; a missing file is
// not an error, callers should fall back to config-seeded defaults.
func LoadState(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("control: read state %s: %w", path, err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("control: parse state %s: %w", path, err)
	}
	return &s, nil
}

// SaveState atomically replaces the state file: write to a temp file in
// the same directory, fsync, then rename, with 0600 permissions.
func SaveState(path string, s *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("control: create state dir: %w", err)
	}

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("control: marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("control: create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("control: write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("control: fsync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("control: close temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("control: chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("control: rename state file: %w", err)
	}
	return nil
}
