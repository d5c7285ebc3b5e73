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
	Use:     "wancd-steering",
	Args:    cobra.NoArgs,
	Short:   "Confidence-scored WAN steering daemon",
	Long:    `wancd-steering scores primary-WAN congestion and toggles a secondary-WAN mangle rule when the primary sustains degraded service.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the steering config file (required)")
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
