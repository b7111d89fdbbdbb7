package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/framecast/spotlight/internal/stills"
)

// imagesCmd runs the still-image branch: same geometry, in-process
// compositing, JPEG output.
var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Process all images in the input folder into the branded 3:4 format",
	RunE: func(c *cobra.Command, args []string) error {
		entries, err := os.ReadDir(cfg.InputDir)
		if err != nil {
			return fmt.Errorf("scan input folder: %w", err)
		}

		var inputs []string
		for _, e := range entries {
			if !e.IsDir() && stills.IsSupported(e.Name()) {
				inputs = append(inputs, filepath.Join(cfg.InputDir, e.Name()))
			}
		}
		sort.Strings(inputs)

		if len(inputs) == 0 {
			log.Warn("no images found in %s", cfg.InputDir)
			return nil
		}

		processed, failed := 0, 0
		for _, in := range inputs {
			out := filepath.Join(cfg.OutputDir, stills.OutputName(filepath.Base(in)))
			if err := stills.Process(in, out); err != nil {
				log.Error("%s: %v", filepath.Base(in), err)
				failed++
				continue
			}
			log.Info("wrote %s", out)
			processed++
		}

		log.Info("images done: %d processed, %d failed", processed, failed)
		if failed > 0 && processed == 0 {
			return fmt.Errorf("all %d images failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)
}
