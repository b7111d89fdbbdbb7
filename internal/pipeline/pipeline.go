// Package pipeline wires the full per-source chain: probe, geometry,
// overlay assets, filter graph, encoder selection, and the
// size-enforcement loop. One Process call handles exactly one job.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/framecast/spotlight/internal/assets"
	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/filtergraph"
	"github.com/framecast/spotlight/internal/geometry"
	"github.com/framecast/spotlight/internal/job"
	"github.com/framecast/spotlight/internal/logging"
	"github.com/framecast/spotlight/internal/metrics"
	"github.com/framecast/spotlight/internal/probe"
	"github.com/framecast/spotlight/internal/sizebound"
	"github.com/framecast/spotlight/internal/transcode"
)

// Deps are the capabilities one pipeline run consumes. Prober and
// Transcoder have real-tool implementations and deterministic fakes for
// tests.
type Deps struct {
	Prober     probe.Service
	Transcoder transcode.Transcoder
	Oracle     transcode.SizeOracle
	Caps       *encoder.HostCapabilities
	Log        *logging.Logger
	Metrics    *metrics.Metrics
	// Progress, when set, receives attempt-level feedback.
	Progress sizebound.Progress
}

// Process runs the whole chain for one job and always returns a
// terminal Result. The job-scoped working directory is released on
// every exit path.
func Process(ctx context.Context, deps Deps, j *job.EncodeJob) *job.Result {
	start := time.Now()
	res := run(ctx, deps, j)
	res.Elapsed = time.Since(start)

	deps.Metrics.ObserveJob(string(res.Status), res.Elapsed.Seconds(), finalSize(res))
	return res
}

func run(ctx context.Context, deps Deps, j *job.EncodeJob) *job.Result {
	log := deps.Log.WithComponent("pipeline").WithFields(map[string]interface{}{
		"job":    j.ID,
		"source": filepath.Base(j.SourcePath),
	})

	if err := ctx.Err(); err != nil {
		return job.Failed(j, nil, nil, fmt.Errorf("%w: %v", job.ErrInterrupted, err))
	}

	src, err := deps.Prober.Probe(ctx, j.SourcePath)
	if err != nil {
		log.Error("probe failed: %v", err)
		return job.Failed(j, nil, nil, err)
	}
	log.Info("probed %dx%d %s %.1fs", src.Width, src.Height, src.Codec, src.Duration)

	plan, err := geometry.Compute(src.Width, src.Height, geometry.VideoOptions())
	if err != nil {
		log.Error("geometry failed: %v", err)
		return job.Failed(j, src, nil, err)
	}

	wd, err := job.NewWorkdir(j)
	if err != nil {
		return job.Failed(j, src, nil, err)
	}
	defer func() {
		if rmErr := wd.Release(); rmErr != nil {
			log.Warn("workdir cleanup: %v", rmErr)
		}
	}()

	overlays, err := assets.Generate(wd.Path, j.ID, plan)
	if err != nil {
		return job.Failed(j, src, nil, err)
	}

	graph := filtergraph.Build(plan)

	selReq := encoder.Request{
		Family:          j.CodecFamily,
		OutputWidth:     plan.Canvas.Width,
		OutputHeight:    plan.Canvas.Height,
		HardwareAllowed: j.HardwareAllowed,
	}
	choice, err := encoder.Select(deps.Caps, selReq)
	if err != nil {
		return job.Failed(j, src, nil, err)
	}
	log.Info("crop %dx%d@(%d,%d) canvas %dx%d encoder %s",
		plan.Crop.Width, plan.Crop.Height, plan.Crop.OffsetX, plan.Crop.OffsetY,
		plan.Canvas.Width, plan.Canvas.Height, choice.Implementation)

	ctl := &sizebound.Controller{
		Transcoder: deps.Transcoder,
		Oracle:     deps.Oracle,
		Caps:       deps.Caps,
		Log:        log,
		Progress: func(attempt int, size int64) {
			if deps.Progress != nil {
				deps.Progress(attempt, size)
			}
		},
	}

	outcome := ctl.Run(ctx, sizebound.Input{
		Job:       j,
		Source:    src,
		Graph:     graph,
		Assets:    overlays,
		Workdir:   wd,
		Choice:    choice,
		SelectReq: selReq,
	})
	for _, a := range outcome.Attempts {
		deps.Metrics.ObserveAttempt(a.Mode)
	}

	if outcome.Status == job.StatusFailed {
		log.Error("job failed: %v", outcome.Err)
		return job.Failed(j, src, outcome.Attempts, outcome.Err)
	}

	// Promote the kept artifact out of the workdir before it is
	// released.
	if err := moveFile(outcome.FinalPath, j.OutputPath); err != nil {
		return job.Failed(j, src, outcome.Attempts, fmt.Errorf("publish artifact: %w", err))
	}

	res := &job.Result{
		Job:       j,
		Source:    src,
		FinalPath: j.OutputPath,
		Attempts:  outcome.Attempts,
		Status:    outcome.Status,
	}
	if outcome.Status == job.StatusSizeLimitNotMet {
		res.Cause = fmt.Sprintf("size limit not met after %d attempts; smallest artifact kept", len(outcome.Attempts))
		log.Warn("%s", res.Cause)
	} else {
		log.Info("done: %s", j.OutputPath)
	}
	return res
}

func finalSize(res *job.Result) int64 {
	for i := len(res.Attempts) - 1; i >= 0; i-- {
		if res.Attempts[i].Succeeded {
			return res.Attempts[i].OutputSizeBytes
		}
	}
	return 0
}

// moveFile renames src to dst, copying across filesystems when rename
// is not possible (temp dirs often live on a different mount).
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
