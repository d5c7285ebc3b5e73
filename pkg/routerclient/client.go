// Package routerclient issues the narrow command set wanctl needs
// against a MikroTik-family router, over either an SSH or a REST
// transport, with retry/backoff and circuit breaking layered uniformly
// over both.
package routerclient

import (
	"context"
	"fmt"
)

// QueueStats is one cycle's cumulative counters for a shaper queue, as
// reported by the router.
type QueueStats struct {
	Packets       uint64
	Bytes         uint64
	Dropped       uint64
	QueuedPackets uint64
	QueuedBytes   uint64
}

// Client is the command surface every transport implements. All methods
// honor ctx's deadline; callers set connect/command timeouts on ctx.
type Client interface {
	SetMaxLimit(ctx context.Context, queueName string, bps uint64) error
	GetMaxLimit(ctx context.Context, queueName string) (uint64, error)
	GetQueueStats(ctx context.Context, queueName string) (QueueStats, error)
	ResetQueueCounters(ctx context.Context, queueName string) error
	EnableRule(ctx context.Context, comment string) error
	DisableRule(ctx context.Context, comment string) error
	IsRuleEnabled(ctx context.Context, comment string) (bool, error)
	TestConnection(ctx context.Context) error
	Close() error
}

// commandError wraps a raw transport failure with the RouterOS command
// string that produced it, for logging and classification.
type commandError struct {
	command string
	err     error
}

func (e *commandError) Error() string {
	return fmt.Sprintf("router command %q: %v", e.command, e.err)
}

func (e *commandError) Unwrap() error { return e.err }

func wrapCommandErr(command string, err error) error {
	if err == nil {
		return nil
	}
	return &commandError{command: command, err: err}
}
