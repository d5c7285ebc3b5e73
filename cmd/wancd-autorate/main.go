package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "wancd-autorate",
	Args:    cobra.NoArgs,
	Short:   "Per-WAN congestion-responsive rate control daemon",
	Long:    `wancd-autorate probes RTT against one WAN, classifies congestion, and adjusts a shaper queue's rate ceiling to hold latency under bufferbloat.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the WAN config file (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "force debug log level")
	rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(oneshotCmd)
	rootCmd.AddCommand(validateConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
