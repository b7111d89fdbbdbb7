package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// SampleClip describes one synthetic test clip.
type SampleClip struct {
	Name   string
	Width  int
	Height int
}

// DefaultSamples covers the three aspect classes the geometry engine
// distinguishes: wider than 3:4, taller than 3:4, and square.
func DefaultSamples() []SampleClip {
	return []SampleClip{
		{Name: "wide_sample.mp4", Width: 800, Height: 400},
		{Name: "tall_sample.mp4", Width: 400, Height: 800},
		{Name: "square_sample.mp4", Width: 600, Height: 600},
	}
}

// GenerateSamples writes synthetic test clips into dir using ffmpeg's
// lavfi color and sine sources, and returns the created paths.
func (f *FFmpeg) GenerateSamples(ctx context.Context, dir string, clips []SampleClip) ([]string, error) {
	const duration = 5

	var created []string
	for _, clip := range clips {
		out := filepath.Join(dir, clip.Name)

		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		cmd := exec.CommandContext(runCtx, f.binary(),
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=0xB44682:s=%dx%d:r=30:d=%d", clip.Width, clip.Height, duration),
			"-f", "lavfi",
			"-i", fmt.Sprintf("sine=frequency=1000:duration=%d", duration),
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "22",
			"-c:a", "aac",
			"-y", out,
		)
		err := cmd.Run()
		cancel()
		if err != nil {
			return created, fmt.Errorf("%w: sample %s: %v", ErrEncode, clip.Name, err)
		}
		created = append(created, out)
	}
	return created, nil
}
