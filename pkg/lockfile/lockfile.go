// Package lockfile implements the PID-based single-instance lock: a
// plain text file containing the owning PID, whose mtime is the
// liveness probe for reclaiming a stale lock left behind by a crashed
// process.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrHeld is returned by Acquire when another live process holds the lock.
var ErrHeld = errors.New("lockfile: held by another live process")

// Lock represents an acquired lock file; Release removes it.
type Lock struct {
	path string
}

// Acquire attempts to take the lock at path. A pre-existing lock file
// is reclaimed if its PID is no longer alive or its mtime age exceeds
// timeout; otherwise Acquire returns ErrHeld.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	if err := tryReclaim(path, timeout); err != nil {
		return nil, err
	}

	pid := os.Getpid()
	content := strconv.Itoa(pid) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

func tryReclaim(path string, timeout time.Duration) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lockfile: stat %s: %w", path, err)
	}

	pid, readErr := readPID(path)
	age := time.Since(info.ModTime())

	live := readErr == nil && pid > 0 && processAlive(pid) && age < timeout
	if live {
		return ErrHeld
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("lockfile: remove stale lock %s: %w", path, err)
	}
	return nil
}

func readPID(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// os.FindProcess always succeeds on unix; signal 0 is the liveness probe.
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("lockfile: release %s: %w", l.path, err)
	}
	return nil
}
