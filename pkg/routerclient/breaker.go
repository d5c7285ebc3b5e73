package routerclient

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerClient wraps a Client with retry/backoff and a circuit breaker,
// the concrete realization of RouterConnectivity.consecutive_failures:
// once enough consecutive failures accumulate the breaker opens and
// short-circuits further calls until its cooldown elapses, instead of
// letting every cycle pile up its own 3-attempt retry against a router
// that is already known to be down.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryPolicy

	Connectivity Connectivity
}

// NewBreakerClient wraps inner, tripping open after consecutiveFailures
// failures within a rolling interval and staying open for cooldown.
func NewBreakerClient(inner Client, name string, consecutiveFailures uint32, cooldown time.Duration) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
	}
	return &BreakerClient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   DefaultRetryPolicy(),
	}
}

func (b *BreakerClient) call(ctx context.Context, command string, fn func(ctx context.Context) error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.retry.Do(ctx, fn)
	})
	b.Connectivity.Record(err)
	if err != nil {
		return wrapCommandErr(command, err)
	}
	return nil
}

func (b *BreakerClient) SetMaxLimit(ctx context.Context, queueName string, bps uint64) error {
	return b.call(ctx, "set_max_limit", func(ctx context.Context) error {
		return b.inner.SetMaxLimit(ctx, queueName, bps)
	})
}

func (b *BreakerClient) GetMaxLimit(ctx context.Context, queueName string) (uint64, error) {
	var out uint64
	err := b.call(ctx, "get_max_limit", func(ctx context.Context) error {
		v, err := b.inner.GetMaxLimit(ctx, queueName)
		out = v
		return err
	})
	return out, err
}

func (b *BreakerClient) GetQueueStats(ctx context.Context, queueName string) (QueueStats, error) {
	var out QueueStats
	err := b.call(ctx, "get_queue_stats", func(ctx context.Context) error {
		v, err := b.inner.GetQueueStats(ctx, queueName)
		out = v
		return err
	})
	return out, err
}

func (b *BreakerClient) ResetQueueCounters(ctx context.Context, queueName string) error {
	return b.call(ctx, "reset_queue_counters", func(ctx context.Context) error {
		return b.inner.ResetQueueCounters(ctx, queueName)
	})
}

func (b *BreakerClient) EnableRule(ctx context.Context, comment string) error {
	return b.call(ctx, "enable_rule", func(ctx context.Context) error {
		return b.inner.EnableRule(ctx, comment)
	})
}

func (b *BreakerClient) DisableRule(ctx context.Context, comment string) error {
	return b.call(ctx, "disable_rule", func(ctx context.Context) error {
		return b.inner.DisableRule(ctx, comment)
	})
}

func (b *BreakerClient) IsRuleEnabled(ctx context.Context, comment string) (bool, error) {
	var out bool
	err := b.call(ctx, "is_rule_enabled", func(ctx context.Context) error {
		v, err := b.inner.IsRuleEnabled(ctx, comment)
		out = v
		return err
	})
	return out, err
}

func (b *BreakerClient) TestConnection(ctx context.Context) error {
	return b.call(ctx, "test_connection", func(ctx context.Context) error {
		return b.inner.TestConnection(ctx)
	})
}

func (b *BreakerClient) Close() error {
	return b.inner.Close()
}
