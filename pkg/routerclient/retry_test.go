package routerclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wanctl/wanctl/pkg/routerclient"
)

func TestRetryPolicy_StopsOnSuccess(t *testing.T) {
	p := routerclient.RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, MaxAttempts: 3}
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryPolicy_RetriesTransientFailures(t *testing.T) {
	p := routerclient.RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil after eventual success", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryPolicy_DoesNotRetryNonRetryable(t *testing.T) {
	p := routerclient.RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("ssh: unable to authenticate")
	})
	if err == nil {
		t.Fatal("Do() = nil, want the auth error surfaced")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (auth failures are not retried)", attempts)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	p := routerclient.RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("dial tcp: connection refused")
	})
	if err == nil {
		t.Fatal("Do() = nil, want error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (MaxAttempts)", attempts)
	}
}
