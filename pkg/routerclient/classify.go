package routerclient

import (
	"context"
	"errors"
	"net"
	"strings"
)

// FailureKind is the closed set of ways a router command can fail, used
// to decide retryability and to populate connectivity state.
type FailureKind string

const (
	FailureNone                FailureKind = ""
	FailureTimeout             FailureKind = "timeout"
	FailureConnectionRefused   FailureKind = "connection_refused"
	FailureNetworkUnreachable  FailureKind = "network_unreachable"
	FailureDNS                 FailureKind = "dns_failure"
	FailureAuth                FailureKind = "auth_failure"
	FailureUnknown             FailureKind = "unknown"
)

// Classify inspects err and buckets it into one of the FailureKind
// values. Unrecognized errors fall into FailureUnknown rather than
// panicking or returning an error of their own, since classification
// must always produce a usable answer for the connectivity tracker.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		msg := strings.ToLower(opErr.Err.Error())
		switch {
		case strings.Contains(msg, "refused"):
			return FailureConnectionRefused
		case strings.Contains(msg, "unreachable"):
			return FailureNetworkUnreachable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "refused"):
		return FailureConnectionRefused
	case strings.Contains(msg, "unreachable"):
		return FailureNetworkUnreachable
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return FailureTimeout
	case strings.Contains(msg, "auth") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "unable to authenticate"):
		return FailureAuth
	default:
		return FailureUnknown
	}
}

// Retryable reports whether a failure of this kind is worth retrying.
// Auth failures and anything unrecognized are surfaced immediately per
// the command client's non-retryable rule.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureConnectionRefused, FailureNetworkUnreachable, FailureDNS:
		return true
	default:
		return false
	}
}

// Connectivity tracks the running failure state of one router client,
// the typed stand-in for spec's RouterConnectivity record.
type Connectivity struct {
	ConsecutiveFailures int
	LastFailureKind     FailureKind
	IsReachable         bool
}

// Record updates connectivity state from the outcome of one command.
func (c *Connectivity) Record(err error) {
	if err == nil {
		c.ConsecutiveFailures = 0
		c.LastFailureKind = FailureNone
		c.IsReachable = true
		return
	}
	c.ConsecutiveFailures++
	c.LastFailureKind = Classify(err)
	c.IsReachable = false
}
