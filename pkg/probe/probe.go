// Package probe measures round-trip time to a set of anchor hosts each
// cycle, fanning out concurrent ICMP pings with
// golang.org/x/sync/errgroup and aggregating the successful results.
package probe

import (
	"context"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregationPolicy is the closed set of ways per-host RTTs are
// combined into one cycle sample.
type AggregationPolicy string

const (
	AggregateAverage       AggregationPolicy = "average"
	AggregateMinimum       AggregationPolicy = "minimum"
	AggregateMedian        AggregationPolicy = "median"
	AggregateMedianOfThree AggregationPolicy = "median_of_three"
)

// Aggregate combines successful RTT samples per the named policy.
// median_of_three falls back to the minimum when fewer than three
// samples succeeded.
func Aggregate(policy AggregationPolicy, samples []float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	switch policy {
	case AggregateMinimum:
		return minOf(samples), true
	case AggregateMedian:
		return medianOf(samples), true
	case AggregateMedianOfThree:
		if len(samples) < 3 {
			return minOf(samples), true
		}
		return medianOf(samples), true
	default: // average
		sum := 0.0
		for _, s := range samples {
			sum += s
		}
		return sum / float64(len(samples)), true
	}
}

func minOf(samples []float64) float64 {
	m := samples[0]
	for _, s := range samples[1:] {
		if s < m {
			m = s
		}
	}
	return m
}

func medianOf(samples []float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

var pingRTTRe = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// Pinger issues a single ICMP echo and returns the parsed RTT in
// milliseconds. Production code shells out to the system `ping` binary,
// matching the teacher's exec.Command-based wrappers, rather than
// requiring raw-socket privileges for an unprivileged daemon.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) (rttMs float64, err error)
}

// SystemPinger shells out to `ping -c 1 -W <timeout> <host>`.
type SystemPinger struct{}

func (SystemPinger) Ping(ctx context.Context, host string, timeout time.Duration) (float64, error) {
	timeoutSec := strconv.Itoa(int(timeout.Seconds()))
	if timeoutSec == "0" {
		timeoutSec = "1"
	}
	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", timeoutSec, host)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}
	m := pingRTTRe.FindStringSubmatch(string(out))
	if m == nil {
		return 0, errNoRTT
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err
}

var errNoRTT = pingParseError("no rtt found in ping output")

type pingParseError string

func (e pingParseError) Error() string { return string(e) }

// Prober runs one cycle of concurrent pings across all configured hosts.
type Prober struct {
	Pinger  Pinger
	Hosts   []string
	Timeout time.Duration
	Policy  AggregationPolicy
}

// Sample is one cycle's RTT measurement, with the aggregation source
// recorded so the control loop can tag the metric row.
type Sample struct {
	RTTMs  float64
	Source string // "icmp", "tcp", or "cache"
}

// Run fans out one ping per host concurrently and aggregates whatever
// succeeds. If every host fails, it returns ok=false — partial failure
// is not an error, total failure defers to the caller's fallback policy.
func (p *Prober) Run(ctx context.Context) (Sample, bool) {
	results := make([]float64, len(p.Hosts))
	ok := make([]bool, len(p.Hosts))

	g, gctx := errgroup.WithContext(ctx)
	for i, host := range p.Hosts {
		i, host := i, host
		g.Go(func() error {
			rtt, err := p.Pinger.Ping(gctx, host, p.Timeout)
			if err == nil {
				results[i] = rtt
				ok[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	var successes []float64
	for i, succeeded := range ok {
		if succeeded {
			successes = append(successes, results[i])
		}
	}

	rtt, found := Aggregate(p.Policy, successes)
	if !found {
		return Sample{}, false
	}
	return Sample{RTTMs: rtt, Source: "icmp"}, true
}
