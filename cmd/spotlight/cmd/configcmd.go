package cmd

import (
	"github.com/spf13/cobra"

	"github.com/framecast/spotlight/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage spotlight configuration",
}

// configInitCmd writes a config file populated with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		path := "spotlight.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		log.Info("wrote default config to %s", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
