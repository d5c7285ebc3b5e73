package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wanctl/wanctl/pkg/logging"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Args:  cobra.NoArgs,
	Short: "Parse and validate the config file, printing any errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(logging.Config{Level: logging.LevelInfo, Format: logging.FormatText})
		if _, err := loadConfig(log); err != nil {
			return fail(exitConfigError, err)
		}
		fmt.Println("config OK")
		return nil
	},
}
