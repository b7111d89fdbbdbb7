// Package probe extracts source media metadata through a single ffprobe
// JSON invocation. Probe failures are fatal to the owning job and are
// never retried.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single ffprobe call.
const DefaultTimeout = 30 * time.Second

// ErrProbe reports an unreadable or unsupported source, a missing tool,
// or a probe that exceeded its timeout.
var ErrProbe = errors.New("probe failed")

// SourceMedia is the immutable result of probing one source file.
type SourceMedia struct {
	Path     string
	Width    int
	Height   int
	Duration float64 // seconds; 0 when unknown (stills, some containers)
	FPS      float64
	Codec    string
	HasAudio bool
}

// Service is the probing capability consumed by the pipeline. The
// ffprobe-backed implementation is FFprobe; tests use a deterministic
// fake.
type Service interface {
	Probe(ctx context.Context, path string) (*SourceMedia, error)
}

// FFprobe probes files by invoking the ffprobe binary.
type FFprobe struct {
	// Binary overrides the ffprobe executable name; empty means "ffprobe".
	Binary string
	// Timeout bounds each invocation; zero means DefaultTimeout.
	Timeout time.Duration
}

// Probe runs ffprobe against path and parses the first video stream.
func (p *FFprobe) Probe(ctx context.Context, path string) (*SourceMedia, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: ffprobe %q: %v", ErrProbe, path, ctx.Err())
		}
		return nil, fmt.Errorf("%w: ffprobe %q: %v", ErrProbe, path, err)
	}

	media, err := ParseJSON(path, out)
	if err != nil {
		return nil, err
	}
	return media, nil
}

// ParseJSON converts raw ffprobe JSON output into SourceMedia. Exported
// so tests can exercise parsing without a real ffprobe binary.
func ParseJSON(path string, data []byte) (*SourceMedia, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe JSON: %v", ErrProbe, err)
	}

	var video *ffprobeStream
	hasAudio := false
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil || video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("%w: no decodable video stream in %q", ErrProbe, path)
	}

	duration := parseFloat(video.Duration)
	if duration <= 0 {
		duration = parseFloat(raw.Format.Duration)
	}

	return &SourceMedia{
		Path:     path,
		Width:    video.Width,
		Height:   video.Height,
		Duration: duration,
		FPS:      parseFrameRate(video.RFrameRate),
		Codec:    video.CodecName,
		HasAudio: hasAudio,
	}, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	RFrameRate string `json:"r_frame_rate"`
}

// parseFrameRate handles ffprobe's fractional frame rates ("30000/1001").
func parseFrameRate(s string) float64 {
	if s == "" {
		return 0
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		num := parseFloat(parts[0])
		den := parseFloat(parts[1])
		if den == 0 {
			return 0
		}
		return num / den
	}
	return parseFloat(parts[0])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
