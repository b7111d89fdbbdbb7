// Package filtergraph builds the declarative ffmpeg filter_complex spec
// that crops a source, rounds its corners with the pre-rendered mask,
// overlays it onto the border and canvas, and converts to the encoder
// pixel format. The builder only describes the transform; execution
// belongs to the transcoder.
package filtergraph

import (
	"fmt"
	"strings"

	"github.com/framecast/spotlight/internal/geometry"
)

// Input index convention for the assembled ffmpeg command: the source is
// input 0, the mask image input 1, the border image input 2.
const (
	SourceInput = 0
	MaskInput   = 1
	BorderInput = 2
)

// Stage is one named step of the transform with its rendered filter
// expression. The ordered stage list is the declarative spec the
// size-enforcement loop reuses across encode attempts.
type Stage struct {
	Name   string
	Filter string
}

// Spec is an ordered, deterministic filter graph. Identical geometry and
// asset paths always produce an identical spec, which the retry loop
// relies on when it re-runs the encoder.
type Spec struct {
	Stages []Stage
	// Output is the label of the final video stream ("[final]").
	Output string
}

// Build composes the full transform for one source. The mask and border
// images do not appear in the filter text; the assembled command feeds
// them as inputs 1 and 2 per the index convention above.
func Build(plan *geometry.Plan) *Spec {
	crop := plan.Crop
	canvas := plan.Canvas
	border := plan.Border

	stages := []Stage{
		{
			Name: "crop",
			Filter: fmt.Sprintf("[%d:v]crop=%d:%d:%d:%d[cropped]",
				SourceInput, crop.Width, crop.Height, crop.OffsetX, crop.OffsetY),
		},
		{
			Name:   "mask-format",
			Filter: fmt.Sprintf("[%d:v]format=rgba[mask]", MaskInput),
		},
		{
			Name:   "alphamerge",
			Filter: "[cropped][mask]alphamerge[rounded]",
		},
		{
			Name:   "border-format",
			Filter: fmt.Sprintf("[%d:v]format=rgba[border]", BorderInput),
		},
		{
			Name: "border-overlay",
			Filter: fmt.Sprintf("[border][rounded]overlay=%d:%d[bordered]",
				border.ThicknessPx, border.ThicknessPx),
		},
		{
			Name:   "canvas",
			Filter: fmt.Sprintf("color=c=black:s=%dx%d[bg]", canvas.Width, canvas.Height),
		},
		{
			Name: "canvas-overlay",
			Filter: fmt.Sprintf("[bg][bordered]overlay=%d:%d[composited]",
				canvas.PasteX, canvas.PasteY),
		},
		{
			// h264 encoders need yuv420p; the alpha stages work in rgba.
			Name:   "pixel-format",
			Filter: "[composited]format=yuv420p[final]",
		},
	}

	return &Spec{Stages: stages, Output: "[final]"}
}

// String renders the graph as a single -filter_complex argument.
func (s *Spec) String() string {
	parts := make([]string, len(s.Stages))
	for i, st := range s.Stages {
		parts[i] = st.Filter
	}
	return strings.Join(parts, ";")
}

// OutputLabel returns the stream label to -map.
func (s *Spec) OutputLabel() string {
	return s.Output
}
