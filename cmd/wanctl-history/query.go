package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wanctl/wanctl/pkg/metrics"
)

func runQuery() error {
	now := time.Now()
	start, end, err := resolveRange(lastWindow, fromStr, toStr, now)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("--to must be after --from")
	}

	reader, err := metrics.OpenReader(dbPath)
	if err != nil {
		return fmt.Errorf("opening metrics store %s: %w", dbPath, err)
	}
	defer reader.Close()

	q := metrics.Query{
		StartTS:     start.Unix(),
		EndTS:       end.Unix(),
		WAN:         wanFlag,
		Granularity: metrics.SelectGranularity(start, end),
	}
	if metricsFlag != "" {
		q.MetricNames = strings.Split(metricsFlag, ",")
	}

	rows, err := reader.Rows(context.Background(), q)
	if err != nil {
		return fmt.Errorf("querying metrics: %w", err)
	}

	switch {
	case jsonOutput:
		return printJSON(rows)
	case summaryOnly:
		fmt.Print(formatSummary(rows))
	default:
		fmt.Print(formatTable(rows))
	}
	return nil
}

func printJSON(rows []metrics.Row) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
