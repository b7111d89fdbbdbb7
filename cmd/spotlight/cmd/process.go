package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/job"
	"github.com/framecast/spotlight/internal/pipeline"
	"github.com/framecast/spotlight/internal/shutdown"
)

var processOutput string

// processCmd handles interactive single-file mode: the same chain as
// bulk mode with a pool of one, run synchronously.
var processCmd = &cobra.Command{
	Use:   "process <source>",
	Short: "Process a single video into the branded 3:4 format",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		source := args[0]

		ctx, stop := shutdown.NotifyContext(context.Background())
		defer stop()

		deps := buildDeps(ctx, nil)
		deps.Progress = func(attempt int, size int64) {
			log.Info("attempt %d produced %.2f MB", attempt, float64(size)/(1024*1024))
		}

		out := processOutput
		if out == "" {
			out = filepath.Join(cfg.OutputDir, outputNameFor(source, cfg.Container))
		}

		j := job.New(source, out, encoder.Family(cfg.Codec), cfg.MaxOutputBytes(), cfg.Hardware)
		res := pipeline.Process(ctx, deps, j)

		switch res.Status {
		case job.StatusSuccess:
			log.Info("wrote %s in %s (%d attempts)", res.FinalPath, res.Elapsed.Round(timeRound), len(res.Attempts))
			return nil
		case job.StatusSizeLimitNotMet:
			log.Warn("wrote %s but %s", res.FinalPath, res.Cause)
			return nil
		default:
			return fmt.Errorf("processing %s: %s", source, res.Cause)
		}
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output file path (default <output_dir>/<name>.<container>)")
	rootCmd.AddCommand(processCmd)
}
