// Package transcode wraps ffmpeg invocation behind the Transcoder
// capability so the size-enforcement state machine can be tested against
// a deterministic fake. It also provides the file-size oracle used to
// judge encode attempts.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/framecast/spotlight/internal/assets"
	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/filtergraph"
)

// ErrEncode reports a failed encoder invocation.
var ErrEncode = errors.New("encode failed")

// Mode selects the rate-control strategy for one encode attempt.
type Mode string

const (
	// ModeQuality is a single-pass, quality-first (CRF style) encode.
	ModeQuality Mode = "quality"
	// ModeTwoPass targets an explicit bitrate with a two-pass encode.
	ModeTwoPass Mode = "two-pass"
)

// RateControl carries the rate parameters for one attempt. Bitrates are
// ignored in quality mode.
type RateControl struct {
	Mode             Mode
	VideoBitrateKbps int
	AudioBitrateKbps int
	// Preset overrides the encoder preset in two-pass mode; the
	// aggressive final attempt uses the slowest preset available.
	Preset string
}

// Request describes one encode invocation. The filter graph, overlay
// assets, and encoder choice stay fixed across a job's attempts; only
// OutputPath and Rate change.
type Request struct {
	SourcePath string
	Duration   float64 // seconds; bounds the output for looped image inputs
	Graph      *filtergraph.Spec
	Assets     assets.Paths
	Encoder    encoder.Choice
	Rate       RateControl
	OutputPath string
	// WorkDir holds two-pass log files; it must be job-unique.
	WorkDir string
}

// Transcoder is the encoding capability consumed by the size controller.
type Transcoder interface {
	Encode(ctx context.Context, req Request) error
}

// SizeOracle measures produced artifacts.
type SizeOracle interface {
	SizeOf(path string) (int64, error)
}

// StatOracle is the filesystem-backed SizeOracle.
type StatOracle struct{}

// SizeOf returns the on-disk byte size of path.
func (StatOracle) SizeOf(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// FFmpeg is the ffmpeg-backed Transcoder.
type FFmpeg struct {
	// Binary overrides the ffmpeg executable name; empty means "ffmpeg".
	Binary string
	// MinTimeout is the floor for the per-invocation wall clock bound;
	// zero means 5 minutes. The effective bound is max(MinTimeout,
	// 2x source duration).
	MinTimeout time.Duration
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f *FFmpeg) timeoutFor(duration float64) time.Duration {
	min := f.MinTimeout
	if min <= 0 {
		min = 5 * time.Minute
	}
	byDuration := time.Duration(duration*2) * time.Second
	if byDuration > min {
		return byDuration
	}
	return min
}

// Encode runs one encode attempt. Two-pass mode runs the analysis pass
// and the encoding pass as separate ffmpeg invocations sharing a pass
// log file under the job work directory.
func (f *FFmpeg) Encode(ctx context.Context, req Request) error {
	switch req.Rate.Mode {
	case ModeTwoPass:
		passLog := filepath.Join(req.WorkDir, "ffmpeg2pass")
		if err := f.run(ctx, req, buildArgs(req, 1, passLog)); err != nil {
			return fmt.Errorf("pass 1: %w", err)
		}
		if err := f.run(ctx, req, buildArgs(req, 2, passLog)); err != nil {
			return fmt.Errorf("pass 2: %w", err)
		}
		return nil
	default:
		return f.run(ctx, req, buildArgs(req, 0, ""))
	}
}

func (f *FFmpeg) run(ctx context.Context, req Request, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeoutFor(req.Duration))
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrEncode, ctx.Err())
		}
		return fmt.Errorf("%w: %v: %s", ErrEncode, err, tail(stderr.String(), 400))
	}
	return nil
}

// buildArgs assembles the full ffmpeg argument list for one invocation.
// pass is 0 for single-pass, 1 or 2 for the two-pass stages.
func buildArgs(req Request, pass int, passLog string) []string {
	args := []string{
		"-i", req.SourcePath,
		"-loop", "1", "-i", req.Assets.Mask,
		"-loop", "1", "-i", req.Assets.Border,
		"-filter_complex", req.Graph.String(),
		"-map", req.Graph.OutputLabel(),
	}

	// Pass 1 analyzes video only; every other invocation carries audio.
	if pass != 1 {
		args = append(args, "-map", fmt.Sprintf("%d:a?", filtergraph.SourceInput))
	}

	// Bound output duration: the looped mask/border inputs would
	// otherwise keep the encode running forever.
	if req.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(req.Duration, 'f', -1, 64))
	}

	switch req.Rate.Mode {
	case ModeTwoPass:
		kbps := req.Rate.VideoBitrateKbps
		preset := req.Rate.Preset
		if preset == "" {
			preset = "slow"
		}
		args = append(args,
			"-c:v", req.Encoder.Implementation,
			"-b:v", fmt.Sprintf("%dk", kbps),
			"-maxrate", fmt.Sprintf("%dk", kbps*12/10),
			"-bufsize", fmt.Sprintf("%dk", kbps*2),
			"-preset", preset,
			"-pass", strconv.Itoa(pass),
			"-passlogfile", passLog,
		)
	default:
		args = append(args, "-c:v", req.Encoder.Implementation)
		args = append(args, req.Encoder.PresetArgs...)
	}

	if pass == 1 {
		args = append(args, "-an", "-f", "null", "-y", os.DevNull)
		return args
	}

	audioKbps := req.Rate.AudioBitrateKbps
	if audioKbps <= 0 {
		audioKbps = 192
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", audioKbps),
		"-ar", "48000",
		"-movflags", "+faststart",
		"-y", req.OutputPath,
	)
	return args
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
