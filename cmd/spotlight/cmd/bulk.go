package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/job"
	"github.com/framecast/spotlight/internal/metrics"
	"github.com/framecast/spotlight/internal/scheduler"
	"github.com/framecast/spotlight/internal/shutdown"
	"github.com/framecast/spotlight/internal/transcode"
)

var bulkSamples bool

// bulkCmd processes every video in the input folder across a bounded
// worker pool.
var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Process all videos in the input folder in parallel",
	RunE: func(c *cobra.Command, args []string) error {
		mgr := shutdown.New(30 * time.Second)
		ctx, stop := mgr.Context(context.Background())
		defer stop()

		m := metrics.New()
		deps := buildDeps(ctx, m)

		if cfg.MetricsListen != "" {
			startMetricsServer(mgr, m)
		}

		if bulkSamples {
			if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
				return err
			}
			ff := &transcode.FFmpeg{MinTimeout: cfg.EncodeTimeout}
			created, err := ff.GenerateSamples(ctx, cfg.InputDir, transcode.DefaultSamples())
			if err != nil {
				return fmt.Errorf("generate samples: %w", err)
			}
			log.Info("created %d sample clips in %s", len(created), cfg.InputDir)
		}

		sources, err := listVideos(cfg.InputDir)
		if err != nil {
			return fmt.Errorf("scan input folder: %w", err)
		}
		if len(sources) == 0 {
			log.Warn("no videos found in %s", cfg.InputDir)
			return nil
		}

		jobs := make([]*job.EncodeJob, 0, len(sources))
		for _, src := range sources {
			out := filepath.Join(cfg.OutputDir, outputNameFor(src, cfg.Container))
			jobs = append(jobs, job.New(src, out, encoder.Family(cfg.Codec), cfg.MaxOutputBytes(), cfg.Hardware))
		}

		workers := workerCount(deps)
		log.Info("processing %d videos with %d workers, ceiling %d MB", len(jobs), workers, cfg.MaxOutputMB)

		start := time.Now()
		results := scheduler.RunBatch(ctx, deps, jobs, workers, func(ev scheduler.Event) {
			log.Info("%s: attempt %d -> %.2f MB",
				filepath.Base(ev.Source), ev.AttemptIndex, float64(ev.SizeBytes)/(1024*1024))
		})

		printSummary(results, time.Since(start))

		if err := mgr.Run(); err != nil {
			log.Warn("cleanup: %v", err)
		}
		if shutdown.Interrupted(ctx) {
			return fmt.Errorf("batch interrupted: %d of %d jobs finished", len(results.All), len(jobs))
		}
		if results.Count(job.StatusFailed) == len(results.All) {
			return fmt.Errorf("all %d jobs failed", len(results.All))
		}
		return nil
	},
}

// startMetricsServer serves /metrics and /healthz until shutdown.
func startMetricsServer(mgr *shutdown.Manager, m *metrics.Metrics) {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: cfg.MetricsListen, Handler: r}
	go func() {
		log.Info("metrics listening on %s", cfg.MetricsListen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server: %v", err)
		}
	}()
	mgr.Register(srv.Shutdown)
}

func printSummary(results *scheduler.Results, elapsed time.Duration) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Source", "Status", "Attempts", "Size", "Time")

	for _, res := range results.All {
		size := "-"
		for i := len(res.Attempts) - 1; i >= 0; i-- {
			if res.Attempts[i].Succeeded {
				size = fmt.Sprintf("%.2f MB", float64(res.Attempts[i].OutputSizeBytes)/(1024*1024))
				break
			}
		}
		table.Append(
			filepath.Base(res.Job.SourcePath),
			string(res.Status),
			fmt.Sprintf("%d", len(res.Attempts)),
			size,
			res.Elapsed.Round(timeRound).String(),
		)
	}
	table.Render()

	fmt.Printf("\n%d succeeded, %d over size limit, %d failed in %s\n",
		results.Count(job.StatusSuccess),
		results.Count(job.StatusSizeLimitNotMet),
		results.Count(job.StatusFailed),
		elapsed.Round(timeRound))
}

func init() {
	bulkCmd.Flags().BoolVar(&bulkSamples, "samples", false, "generate synthetic sample clips into the input folder first")
	rootCmd.AddCommand(bulkCmd)
}
