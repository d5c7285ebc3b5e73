package routerclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wanctl/wanctl/pkg/routerclient"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want routerclient.FailureKind
	}{
		{"nil", nil, routerclient.FailureNone},
		{"deadline", context.DeadlineExceeded, routerclient.FailureTimeout},
		{"refused", errors.New("dial tcp: connection refused"), routerclient.FailureConnectionRefused},
		{"unreachable", errors.New("dial tcp: network is unreachable"), routerclient.FailureNetworkUnreachable},
		{"auth", errors.New("ssh: unable to authenticate"), routerclient.FailureAuth},
		{"weird", errors.New("something exploded"), routerclient.FailureUnknown},
	}
	for _, c := range cases {
		if got := routerclient.Classify(c.err); got != c.want {
			t.Errorf("%s: Classify() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFailureKind_Retryable(t *testing.T) {
	if !routerclient.FailureTimeout.Retryable() {
		t.Error("FailureTimeout.Retryable() = false, want true")
	}
	if routerclient.FailureAuth.Retryable() {
		t.Error("FailureAuth.Retryable() = true, want false")
	}
	if routerclient.FailureUnknown.Retryable() {
		t.Error("FailureUnknown.Retryable() = true, want false")
	}
}

func TestConnectivity_RecordTracksConsecutiveFailures(t *testing.T) {
	var c routerclient.Connectivity
	c.Record(errors.New("dial tcp: connection refused"))
	c.Record(errors.New("dial tcp: connection refused"))
	if c.ConsecutiveFailures != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", c.ConsecutiveFailures)
	}
	if c.IsReachable {
		t.Error("IsReachable = true after failures, want false")
	}
	c.Record(nil)
	if c.ConsecutiveFailures != 0 || !c.IsReachable {
		t.Errorf("Record(nil) did not reset state: %+v", c)
	}
}
