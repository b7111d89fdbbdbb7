// Package encoder detects host encoding capabilities and selects the
// codec implementation for a job. Detection runs once at process start;
// the resulting descriptor is immutable and passed explicitly into
// per-job selection.
package encoder

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Family identifies a codec family independent of implementation.
type Family string

const (
	FamilyH264 Family = "h264"
	FamilyH265 Family = "h265"
)

// hardwareEncoders lists the hardware implementations probed per family,
// in priority order.
var hardwareEncoders = map[Family][]string{
	FamilyH264: {"h264_videotoolbox", "h264_nvenc", "h264_qsv", "h264_vaapi"},
	FamilyH265: {"hevc_videotoolbox", "hevc_nvenc", "hevc_qsv", "hevc_vaapi"},
}

// softwareEncoders maps each family to its software implementation.
var softwareEncoders = map[Family]string{
	FamilyH264: "libx264",
	FamilyH265: "libx265",
}

// Hardware encoders commonly reject frames beyond this size; outputs
// larger than this fall back to software.
const (
	HardwareMaxWidth  = 4096
	HardwareMaxHeight = 2304
)

// HostCapabilities describes what the current host can encode with.
type HostCapabilities struct {
	OS            string
	Arch          string
	CPUThreads    int
	CPUModel      string
	RAMTotalBytes uint64
	// HardwareByFamily holds the detected hardware encoder per family,
	// empty when none is available.
	HardwareByFamily map[Family]string
}

// HasHardware reports whether a hardware encoder exists for the family.
func (c *HostCapabilities) HasHardware(family Family) bool {
	return c.HardwareByFamily[family] != ""
}

// DetectHost gathers CPU/RAM information and probes ffmpeg for usable
// hardware encoders. Detection failures degrade to software-only
// capabilities rather than erroring: a missing ffmpeg will surface later
// as an encode failure with better context.
func DetectHost(ctx context.Context) *HostCapabilities {
	caps := &HostCapabilities{
		OS:               runtime.GOOS,
		Arch:             runtime.GOARCH,
		CPUThreads:       runtime.NumCPU(),
		HardwareByFamily: make(map[Family]string),
	}

	if threads, err := cpu.Counts(true); err == nil && threads > 0 {
		caps.CPUThreads = threads
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		caps.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		caps.RAMTotalBytes = vm.Total
	}

	available := listFFmpegEncoders(ctx)
	for family, candidates := range hardwareEncoders {
		for _, name := range candidates {
			if available[name] {
				caps.HardwareByFamily[family] = name
				break
			}
		}
	}

	return caps
}

// listFFmpegEncoders parses `ffmpeg -encoders` output into a name set.
func listFFmpegEncoders(ctx context.Context) map[string]bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	return parseEncoderList(string(out))
}

func parseEncoderList(out string) map[string]bool {
	encoders := make(map[string]bool)
	inList := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		// Format: " V....D libx264  H.264 / AVC ..."
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			encoders[fields[1]] = true
		}
	}
	return encoders
}
