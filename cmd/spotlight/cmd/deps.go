package cmd

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/metrics"
	"github.com/framecast/spotlight/internal/pipeline"
	"github.com/framecast/spotlight/internal/probe"
	"github.com/framecast/spotlight/internal/transcode"
)

// timeRound trims duration noise in user-facing output.
const timeRound = 100 * time.Millisecond

// videoExtensions are the container formats accepted as batch input.
var videoExtensions = []string{
	".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv", ".webm", ".m4v", ".mpg", ".mpeg",
}

func isVideoFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range videoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// listVideos returns the sorted video files directly inside dir.
func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isVideoFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// buildDeps wires the real-tool capabilities for pipeline runs. Host
// capabilities are detected once here and shared read-only by all jobs.
func buildDeps(ctx context.Context, m *metrics.Metrics) pipeline.Deps {
	caps := encoder.DetectHost(ctx)
	log.Debug("host: %d threads, hw encoders: %v", caps.CPUThreads, caps.HardwareByFamily)

	return pipeline.Deps{
		Prober:     &probe.FFprobe{Timeout: cfg.ProbeTimeout},
		Transcoder: &transcode.FFmpeg{MinTimeout: cfg.EncodeTimeout},
		Oracle:     transcode.StatOracle{},
		Caps:       caps,
		Log:        log,
		Metrics:    m,
	}
}

// workerCount resolves the configured pool size, defaulting to the
// detected CPU thread count.
func workerCount(deps pipeline.Deps) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	if deps.Caps.CPUThreads > 0 {
		return deps.Caps.CPUThreads
	}
	return 1
}

func outputNameFor(sourcePath, container string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + container
}
