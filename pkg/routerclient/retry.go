package routerclient

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is the exponential backoff schedule every router command
// runs under: 1s initial delay, doubling each attempt, capped at 10s,
// with 0-50% jitter added on top, up to 3 attempts total.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	JitterFrac   float64
}

// DefaultRetryPolicy matches §4.2's fixed schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		MaxAttempts:  3,
		JitterFrac:   0.5,
	}
}

func (p RetryPolicy) delayForAttempt(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	jitter := time.Duration(rand.Float64() * p.JitterFrac * float64(d))
	return d + jitter
}

// Do runs fn up to p.MaxAttempts times, retrying only failures that
// classify as retryable, backing off between attempts. It returns the
// last error if every attempt is exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Classify(lastErr).Retryable() {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-time.After(p.delayForAttempt(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
