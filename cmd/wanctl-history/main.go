package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath      string
	lastWindow  string
	fromStr     string
	toStr       string
	metricsFlag string
	wanFlag     string
	jsonOutput  bool
	summaryOnly bool
	version     = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "wanctl-history",
	Args:    cobra.NoArgs,
	Short:   "Query the wanctl metrics store",
	Long:    `wanctl-history is a read-only CLI over the embedded metrics database, printing a table, a JSON array, or summary statistics for a time range.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery()
	},
}

func init() {
	rootCmd.Flags().StringVar(&dbPath, "db", "/var/lib/wanctl/metrics.db", "path to the metrics database")
	rootCmd.Flags().StringVar(&lastWindow, "last", "", "relative window, e.g. 1h, 24h, 7d")
	rootCmd.Flags().StringVar(&fromStr, "from", "", "start time, \"2006-01-02 15:04:05\" (local time)")
	rootCmd.Flags().StringVar(&toStr, "to", "", "end time, \"2006-01-02 15:04:05\" (local time), default now")
	rootCmd.Flags().StringVar(&metricsFlag, "metrics", "", "comma-separated metric names to filter on")
	rootCmd.Flags().StringVar(&wanFlag, "wan", "", "filter to one WAN name")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print rows as a JSON array instead of a table")
	rootCmd.Flags().BoolVar(&summaryOnly, "summary", false, "print min/max/avg/p50/p95/p99 instead of rows")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
