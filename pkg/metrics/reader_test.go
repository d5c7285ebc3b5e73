package metrics_test

import (
	"testing"
	"time"

	"github.com/wanctl/wanctl/pkg/metrics"
)

func TestSummarize_SingleValueCollapses(t *testing.T) {
	s := metrics.Summarize([]float64{42})
	want := metrics.Summary{Min: 42, Max: 42, Avg: 42, P50: 42, P95: 42, P99: 42}
	if s != want {
		t.Errorf("Summarize(single) = %+v, want %+v", s, want)
	}
}

func TestSummarize_MinMaxAvg(t *testing.T) {
	s := metrics.Summarize([]float64{10, 20, 30, 40})
	if s.Min != 10 || s.Max != 40 || s.Avg != 25 {
		t.Errorf("Summarize = %+v, want min=10 max=40 avg=25", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := metrics.Summarize(nil)
	if s != (metrics.Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero value", s)
	}
}

func TestSelectGranularity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		span time.Duration
		want metrics.Granularity
	}{
		{time.Hour, metrics.GranularityRaw},
		{5 * time.Hour, metrics.GranularityRaw},
		{12 * time.Hour, metrics.Granularity1m},
		{3 * 24 * time.Hour, metrics.Granularity5m},
		{10 * 24 * time.Hour, metrics.Granularity1h},
	}
	for _, c := range cases {
		got := metrics.SelectGranularity(now, now.Add(c.span))
		if got != c.want {
			t.Errorf("SelectGranularity(span=%v) = %v, want %v", c.span, got, c.want)
		}
	}
}
