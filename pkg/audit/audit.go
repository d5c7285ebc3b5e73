// Package audit keeps an in-memory, bounded, timestamp-ordered record of
// the two kinds of consequential action a wanctl daemon takes — router
// command writes and steering FSM transitions — and mirrors each entry
// into the daemon's log. The record is read through Entries and
// GetSummary; it is not part of the /health payload.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one audited action.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	Err       string    `json:"error,omitempty"`
}

// Log is a mutex-guarded ring buffer of Entry, capped at maxEntries so a
// long-running daemon doesn't grow this unbounded.
type Log struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	logger     zerolog.Logger
}

// New returns a Log that retains at most maxEntries and mirrors every
// record into logger at INFO (success) or WARN (failure).
func New(logger zerolog.Logger, maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Log{maxEntries: maxEntries, logger: logger}
}

// Record appends an entry, evicting the oldest if the log is at capacity.
func (l *Log) Record(action, target string, err error, detail string) {
	entry := Entry{
		Timestamp: time.Now(),
		Action:    action,
		Target:    target,
		Success:   err == nil,
		Detail:    detail,
	}
	if err != nil {
		entry.Err = err.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
	l.mu.Unlock()

	ev := l.logger.Info()
	if err != nil {
		ev = l.logger.Warn()
	}
	ev.Str("action", action).Str("target", target).Str("detail", detail).AnErr("error", err).Msg("audit")
}

// RouterWrite records a router command issued against target (a queue or
// firewall rule name), with whatever error the command returned.
func (l *Log) RouterWrite(command, target string, err error) {
	l.Record(command, target, err, "")
}

// SteeringTransition records an FSM state change.
func (l *Log) SteeringTransition(from, to string, dryRun bool) {
	detail := ""
	if dryRun {
		detail = "dry-run: rule not toggled"
	}
	l.Record(fmt.Sprintf("%s -> %s", from, to), "steering_fsm", nil, detail)
}

// Entries returns a snapshot of the last n entries (all of them if n <= 0
// or n exceeds the log's length), most recent last.
func (l *Log) Entries(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Summary reports counts across the retained entries.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d actions, %d succeeded, %d failed", s.Total, s.Succeeded, s.Failed)
}

// GetSummary tallies the retained entries.
func (l *Log) GetSummary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{Total: len(l.entries)}
	for _, e := range l.entries {
		if e.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
