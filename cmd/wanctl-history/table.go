package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/wanctl/wanctl/pkg/metrics"
)

// formatTimestamp renders a row's unix-seconds timestamp in local time.
func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).Local().Format(timestampLayout)
}

// formatValue rounds a metric value to four decimal places and trims
// trailing zeroes.
func formatValue(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

// formatTable renders rows as a fixed-width column table, newest first
// (the order Reader.Rows already returns them in).
func formatTable(rows []metrics.Row) string {
	if len(rows) == 0 {
		return "no rows in range\n"
	}

	var buf bytes.Buffer
	header := fmt.Sprintf("%-20s %-12s %-28s %12s %-10s\n", "TIMESTAMP", "WAN", "METRIC", "VALUE", "GRANULARITY")
	buf.WriteString(header)
	buf.WriteString(strings.Repeat("-", len(header)-1) + "\n")

	for _, r := range rows {
		buf.WriteString(fmt.Sprintf("%-20s %-12s %-28s %12s %-10s\n",
			formatTimestamp(r.Timestamp), r.WANName, r.MetricName, formatValue(r.Value), string(r.Granularity)))
	}
	return buf.String()
}

// formatSummary renders one Summary per metric name present in rows.
func formatSummary(rows []metrics.Row) string {
	byMetric := make(map[string][]float64)
	var order []string
	for _, r := range rows {
		if _, seen := byMetric[r.MetricName]; !seen {
			order = append(order, r.MetricName)
		}
		byMetric[r.MetricName] = append(byMetric[r.MetricName], r.Value)
	}

	var buf bytes.Buffer
	buf.WriteString(strings.Repeat("=", 80) + "\n")
	buf.WriteString("  METRIC SUMMARY\n")
	buf.WriteString(strings.Repeat("=", 80) + "\n\n")

	for _, name := range order {
		s := metrics.Summarize(byMetric[name])
		buf.WriteString(fmt.Sprintf("%s (%d samples)\n", name, len(byMetric[name])))
		buf.WriteString(strings.Repeat("-", 80) + "\n")
		buf.WriteString(fmt.Sprintf("  min: %-12s max: %-12s avg: %-12s\n", formatValue(s.Min), formatValue(s.Max), formatValue(s.Avg)))
		buf.WriteString(fmt.Sprintf("  p50: %-12s p95: %-12s p99: %-12s\n\n", formatValue(s.P50), formatValue(s.P95), formatValue(s.P99)))
	}
	return buf.String()
}
