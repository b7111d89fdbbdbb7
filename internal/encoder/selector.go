package encoder

import (
	"fmt"
)

// Choice is the selected codec implementation plus the preset arguments
// for a quality-first (CRF style) encode.
type Choice struct {
	Implementation string
	Hardware       bool
	// PresetArgs are the ffmpeg video codec arguments excluding -c:v.
	PresetArgs []string
}

// Request carries everything selection depends on. Output dimensions
// matter because hardware encoders have a frame-size ceiling.
type Request struct {
	Family          Family
	OutputWidth     int
	OutputHeight    int
	HardwareAllowed bool
}

// Select chooses hardware when the host supports it for the family and
// the output fits within hardware limits, otherwise a fixed-preset
// software implementation. Selection is pure: the same capabilities and
// request always yield the same choice.
func Select(caps *HostCapabilities, req Request) (Choice, error) {
	software, ok := softwareEncoders[req.Family]
	if !ok {
		return Choice{}, fmt.Errorf("unsupported codec family %q", req.Family)
	}

	exceedsHW := req.OutputWidth > HardwareMaxWidth || req.OutputHeight > HardwareMaxHeight

	if req.HardwareAllowed && !exceedsHW && caps.HasHardware(req.Family) {
		impl := caps.HardwareByFamily[req.Family]
		return Choice{
			Implementation: impl,
			Hardware:       true,
			PresetArgs:     hardwarePresetArgs(req.Family, impl),
		}, nil
	}

	return Choice{
		Implementation: software,
		Hardware:       false,
		PresetArgs:     softwarePresetArgs(req.Family, caps.CPUThreads),
	}, nil
}

// Downgrade returns the software fallback for a failed hardware choice.
// The size controller invokes this at most once per job.
func Downgrade(caps *HostCapabilities, req Request) (Choice, error) {
	req.HardwareAllowed = false
	return Select(caps, req)
}

func hardwarePresetArgs(family Family, impl string) []string {
	switch family {
	case FamilyH265:
		return []string{
			"-b:v", "3M",
			"-maxrate", "4M",
			"-bufsize", "6M",
			"-profile:v", "main",
			"-tag:v", "hvc1",
			"-allow_sw", "1",
		}
	default:
		args := []string{
			"-b:v", "3M",
			"-profile:v", "main",
		}
		// VideoToolbox can silently fall back to software inside ffmpeg.
		if impl == "h264_videotoolbox" {
			args = append(args, "-allow_sw", "1")
		}
		return args
	}
}

// softwarePresetArgs picks the x264/x265 preset from the CPU thread
// count: bigger hosts can afford slower presets for better quality.
func softwarePresetArgs(family Family, cpuThreads int) []string {
	preset := "veryfast"
	switch {
	case cpuThreads >= 16:
		preset = "medium"
	case cpuThreads >= 8:
		preset = "fast"
	case cpuThreads >= 4:
		preset = "veryfast"
	default:
		preset = "ultrafast"
	}

	if family == FamilyH265 {
		return []string{
			"-preset", preset,
			"-crf", "20",
			"-tag:v", "hvc1",
		}
	}
	return []string{
		"-preset", preset,
		"-crf", "18",
		"-profile:v", "high",
		"-level", "4.1",
	}
}
