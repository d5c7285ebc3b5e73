package main

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// parseDuration parses the --last shorthand: one integer followed by s,
// m, h or d (days). Unlike time.ParseDuration it accepts days, and it
// does not accept compound (1h30m) or fractional (1.5h) values.
func parseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q, want e.g. 1h, 24h, 7d", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	unit := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
	}[m[2]]
	return time.Duration(n) * unit, nil
}

const timestampLayout = "2006-01-02 15:04:05"

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, want %q: %w", s, timestampLayout, err)
	}
	return t, nil
}

// resolveRange turns the --last/--from/--to flags into a concrete
// start/end pair (the query includes rows at both ends), defaulting to
// the last hour when nothing is set.
func resolveRange(last, from, to string, now time.Time) (time.Time, time.Time, error) {
	if last != "" {
		d, err := parseDuration(last)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return now.Add(-d), now, nil
	}

	end := now
	if to != "" {
		t, err := parseTimestamp(to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}

	if from == "" {
		return now.Add(-time.Hour), end, nil
	}
	start, err := parseTimestamp(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
