// Package sizebound implements the size-enforcement state machine: it
// drives the transcoder through up to three encode attempts, correcting
// the target bitrate between attempts until the output fits the byte
// budget or the ladder is exhausted.
package sizebound

import (
	"context"
	"fmt"
	"os"

	"github.com/framecast/spotlight/internal/assets"
	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/filtergraph"
	"github.com/framecast/spotlight/internal/job"
	"github.com/framecast/spotlight/internal/logging"
	"github.com/framecast/spotlight/internal/probe"
	"github.com/framecast/spotlight/internal/transcode"
)

// MaxAttempts bounds encode attempts per job, including a hardware
// attempt that failed and was downgraded.
const MaxAttempts = 3

const (
	// sizeMargin shrinks the computed bitrate to absorb container
	// overhead the formula cannot see. Empirical, tunable.
	sizeMargin = 0.9
	// aggressiveBudgetFactor is the share of the byte budget the final
	// attempt targets. Empirical, tunable.
	aggressiveBudgetFactor = 0.95

	// Bitrate clamp keeps retries within a usable quality range.
	minBitrateKbps = 500
	maxBitrateKbps = 5000

	// Audio rates: quality-first attempt keeps full-quality audio,
	// size-constrained retries drop to a leaner rate.
	audioKbpsQuality = 192
	audioKbpsRetry   = 128
)

// Stage is the rung of the escalation ladder an attempt runs under.
type Stage string

const (
	// StageQuality is the single-pass, quality-first (CRF) encode.
	StageQuality Stage = "quality"
	// StageTwoPass targets the corrected bitrate with two passes.
	StageTwoPass Stage = "two-pass"
	// StageAggressive is the last attempt: 95% budget, slowest preset.
	StageAggressive Stage = "aggressive"
)

// Next returns the stage after an over-budget outcome, and false once
// the ladder is exhausted.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageQuality:
		return StageTwoPass, true
	case StageTwoPass:
		return StageAggressive, true
	default:
		return "", false
	}
}

// Outcome is the controller's terminal verdict for one job.
type Outcome struct {
	FinalPath string
	Attempts  []job.Attempt
	Status    job.Status
	// Err is set only for StatusFailed outcomes.
	Err error
}

// Input bundles the per-job state the controller operates on. Graph,
// assets, and workdir stay fixed across attempts.
type Input struct {
	Job     *job.EncodeJob
	Source  *probe.SourceMedia
	Graph   *filtergraph.Spec
	Assets  assets.Paths
	Workdir *job.Workdir
	Choice  encoder.Choice
	// SelectReq re-selects the encoder for the one-shot software
	// downgrade after a hardware failure.
	SelectReq encoder.Request
}

// Progress is invoked after every measured attempt with the attempt
// index (1-based) and the produced size in bytes.
type Progress func(attemptIndex int, sizeBytes int64)

// Controller runs the enforcement loop against abstract capabilities so
// it is testable without a real encoder.
type Controller struct {
	Transcoder transcode.Transcoder
	Oracle     transcode.SizeOracle
	Caps       *encoder.HostCapabilities
	Log        *logging.Logger
	Progress   Progress
}

// Run executes the ladder for one job. Cancellation is observed between
// attempts; in-flight invocations are killed through the context.
func (c *Controller) Run(ctx context.Context, in Input) Outcome {
	choice := in.Choice
	stage := StageQuality
	downgraded := false

	var attempts []job.Attempt
	bestPath := ""
	var bestSize int64

	for len(attempts) < MaxAttempts {
		if err := ctx.Err(); err != nil {
			return c.fail(attempts, fmt.Errorf("%w: %v", job.ErrInterrupted, err))
		}

		passIndex := len(attempts) + 1
		outPath := in.Workdir.AttemptPath(in.Job, passIndex)
		rate := c.rateFor(stage, in)

		c.Log.Debug("attempt %d: stage=%s encoder=%s bitrate=%dk",
			passIndex, stage, choice.Implementation, rate.VideoBitrateKbps)

		att := job.Attempt{
			PassIndex:         passIndex,
			Mode:              string(stage),
			TargetBitrateKbps: rate.VideoBitrateKbps,
			OutputPath:        outPath,
		}

		err := c.Transcoder.Encode(ctx, transcode.Request{
			SourcePath: in.Job.SourcePath,
			Duration:   in.Source.Duration,
			Graph:      in.Graph,
			Assets:     in.Assets,
			Encoder:    choice,
			Rate:       rate,
			OutputPath: outPath,
			WorkDir:    in.Workdir.Path,
		})
		if err != nil {
			att.Err = err
			attempts = append(attempts, att)
			os.Remove(outPath)

			if ctx.Err() != nil {
				return c.fail(attempts, fmt.Errorf("%w: %v", job.ErrInterrupted, ctx.Err()))
			}

			// Exactly one automatic hardware->software downgrade per
			// job; a second encoder failure is fatal.
			if choice.Hardware && !downgraded {
				downgraded = true
				sw, selErr := encoder.Downgrade(c.Caps, in.SelectReq)
				if selErr != nil {
					return c.fail(attempts, selErr)
				}
				c.Log.Warn("hardware encoder %s failed, downgrading to %s",
					choice.Implementation, sw.Implementation)
				choice = sw
				continue
			}
			return c.fail(attempts, err)
		}

		size, sizeErr := c.Oracle.SizeOf(outPath)
		if sizeErr != nil {
			att.Err = sizeErr
			attempts = append(attempts, att)
			return c.fail(attempts, fmt.Errorf("measure attempt %d: %w", passIndex, sizeErr))
		}
		att.OutputSizeBytes = size
		att.Succeeded = true
		attempts = append(attempts, att)

		if c.Progress != nil {
			c.Progress(passIndex, size)
		}

		if size <= in.Job.MaxOutputBytes {
			c.removeAllExcept(attempts, outPath)
			return Outcome{FinalPath: outPath, Attempts: attempts, Status: job.StatusSuccess}
		}

		c.Log.Info("attempt %d over budget: %d > %d bytes", passIndex, size, in.Job.MaxOutputBytes)

		// Track the smallest artifact so LimitNotMet can keep it.
		if bestPath == "" || size < bestSize {
			if bestPath != "" && bestPath != outPath {
				os.Remove(bestPath)
			}
			bestPath = outPath
			bestSize = size
		} else {
			os.Remove(outPath)
		}

		next, ok := stage.Next()
		if !ok {
			break
		}
		stage = next

		// Two-pass rate targeting needs the software encoder: hardware
		// implementations do not support -pass and are less predictable
		// at an exact bitrate.
		if choice.Hardware {
			sw, selErr := encoder.Downgrade(c.Caps, in.SelectReq)
			if selErr != nil {
				return c.fail(attempts, selErr)
			}
			choice = sw
		}
	}

	if bestPath == "" {
		return c.fail(attempts, fmt.Errorf("%w: no artifact produced", transcode.ErrEncode))
	}
	c.removeAllExcept(attempts, bestPath)
	return Outcome{FinalPath: bestPath, Attempts: attempts, Status: job.StatusSizeLimitNotMet}
}

func (c *Controller) fail(attempts []job.Attempt, err error) Outcome {
	for _, a := range attempts {
		if a.OutputPath != "" {
			os.Remove(a.OutputPath)
		}
	}
	return Outcome{Attempts: attempts, Status: job.StatusFailed, Err: err}
}

// removeAllExcept deletes every recorded attempt file except keep.
func (c *Controller) removeAllExcept(attempts []job.Attempt, keep string) {
	for _, a := range attempts {
		if a.OutputPath != "" && a.OutputPath != keep {
			os.Remove(a.OutputPath)
		}
	}
}

// rateFor maps a ladder stage to its rate-control parameters.
func (c *Controller) rateFor(stage Stage, in Input) transcode.RateControl {
	audioKbps := 0
	if in.Source.HasAudio {
		audioKbps = audioKbpsRetry
	}

	switch stage {
	case StageTwoPass:
		return transcode.RateControl{
			Mode:             transcode.ModeTwoPass,
			VideoBitrateKbps: TargetBitrateKbps(in.Job.MaxOutputBytes, in.Source.Duration, audioKbps),
			AudioBitrateKbps: audioKbps,
			Preset:           "slow",
		}
	case StageAggressive:
		budget := int64(float64(in.Job.MaxOutputBytes) * aggressiveBudgetFactor)
		return transcode.RateControl{
			Mode:             transcode.ModeTwoPass,
			VideoBitrateKbps: TargetBitrateKbps(budget, in.Source.Duration, audioKbps),
			AudioBitrateKbps: audioKbps,
			Preset:           "veryslow",
		}
	default:
		return transcode.RateControl{
			Mode:             transcode.ModeQuality,
			AudioBitrateKbps: audioKbpsQuality,
		}
	}
}

// TargetBitrateKbps computes the corrected video bitrate for a byte
// budget: the budget in bits minus the audio share, spread over the
// duration, scaled by the container-overhead margin, clamped to a
// usable range.
func TargetBitrateKbps(maxBytes int64, durationSeconds float64, audioKbps int) int {
	if durationSeconds <= 0 {
		return 2000
	}

	totalBits := float64(maxBytes) * 8
	audioBits := float64(audioKbps) * 1000 * durationSeconds
	videoBits := totalBits - audioBits

	kbps := videoBits / durationSeconds / 1000 * sizeMargin
	if kbps < minBitrateKbps {
		return minBitrateKbps
	}
	if kbps > maxBitrateKbps {
		return maxBitrateKbps
	}
	return int(kbps)
}
