// Package cmd implements the spotlight command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/framecast/spotlight/internal/config"
	"github.com/framecast/spotlight/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool

	cfg *config.Config
	log *logging.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "spotlight",
	Short: "Convert media into the branded 3:4 portrait format",
	Long: `spotlight crops images and videos to a 3:4 portrait layout with
rounded corners and a branded border, and keeps video outputs under a
hard size ceiling by re-encoding with corrected bitrates.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		// Flags override config file values when set explicitly.
		if c.Flags().Changed("log-level") || cfg.LogLevel == "" {
			cfg.LogLevel = logLevel
		}
		if c.Flags().Changed("log-json") {
			cfg.LogJSON = logJSON
		}
		log = logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./spotlight.yaml or $HOME/.spotlight/spotlight.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}
