// Package geometry computes the crop box, output canvas, and border/mask
// dimensions that turn an arbitrary source frame into the branded 3:4
// portrait layout. All functions are pure; plans are recomputed per job.
package geometry

import (
	"fmt"
)

// TargetRatio is the width/height ratio of the branded portrait format.
const TargetRatio = 3.0 / 4.0

// ratioEpsilon is the tolerance below which a source is treated as
// already matching the target ratio.
const ratioEpsilon = 0.01

const (
	// canvasScale is how much taller the canvas is than the cropped content.
	canvasScale = 1.2

	// Border thickness and corner radius are proportional to a 360px
	// reference width, matching the brand style guide.
	borderPerWidth = 2.0 / 360.0
	radiusPerWidth = 16.0 / 360.0

	// BorderOpacity is the alpha of the border overlay fill.
	BorderOpacity = 0.15
)

// ErrInvalidGeometry reports degenerate source dimensions.
var ErrInvalidGeometry = fmt.Errorf("invalid geometry")

// CropPlan is the rectangle selected from the source frame to reach the
// target aspect ratio.
type CropPlan struct {
	Width   int
	Height  int
	OffsetX int
	OffsetY int
}

// CanvasPlan is the final output frame. It is taller than the crop and
// provides the vertical padding below the content.
type CanvasPlan struct {
	Width  int
	Height int
	// PasteX/PasteY position the bordered crop on the canvas: centered
	// horizontally, anchored to the top.
	PasteX int
	PasteY int
}

// BorderSpec describes the rounded border overlay drawn around the crop.
type BorderSpec struct {
	ThicknessPx int
	RadiusPx    int
	Opacity     float64
}

// MaskSpec describes the rounded-corner alpha mask applied to the crop.
type MaskSpec struct {
	Width    int
	Height   int
	RadiusPx int
}

// Options tune per-media differences between the image and video paths.
type Options struct {
	// EvenDimensions forces crop and canvas dimensions to be even, as
	// required by most video codecs. Stills do not need it.
	EvenDimensions bool

	// MinBorderPx is the floor for border thickness on very small sources.
	MinBorderPx int
}

// VideoOptions returns the geometry options used by the video path.
func VideoOptions() Options {
	return Options{EvenDimensions: true, MinBorderPx: 2}
}

// ImageOptions returns the geometry options used by the still-image path.
func ImageOptions() Options {
	return Options{EvenDimensions: false, MinBorderPx: 1}
}

// Plan bundles everything the compositing stages need for one source.
type Plan struct {
	Crop   CropPlan
	Canvas CanvasPlan
	Border BorderSpec
	Mask   MaskSpec
}

// Compute derives the full layout plan for a source of the given pixel
// dimensions. Wider-than-target sources are center-cropped horizontally;
// taller-than-target sources are cropped from the bottom, keeping the top
// of the frame where the subject usually is.
func Compute(sourceWidth, sourceHeight int, opts Options) (*Plan, error) {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, sourceWidth, sourceHeight)
	}

	crop := computeCrop(sourceWidth, sourceHeight, opts)
	border := computeBorder(crop, opts)
	canvas := computeCanvas(crop, border, opts)

	mask := MaskSpec{
		Width:    crop.Width,
		Height:   crop.Height,
		RadiusPx: border.RadiusPx,
	}

	return &Plan{Crop: crop, Canvas: canvas, Border: border, Mask: mask}, nil
}

func computeCrop(w, h int, opts Options) CropPlan {
	sourceRatio := float64(w) / float64(h)

	var crop CropPlan
	switch {
	case abs(sourceRatio-TargetRatio) < ratioEpsilon:
		// Already 3:4, no crop.
		crop = CropPlan{Width: w, Height: h}
	case sourceRatio > TargetRatio:
		// Wider than 3:4: crop the width, centered.
		cw := int(float64(h) * TargetRatio)
		crop = CropPlan{
			Width:   cw,
			Height:  h,
			OffsetX: (w - cw) / 2,
			OffsetY: 0,
		}
	default:
		// Taller than 3:4: crop the height, keeping the top.
		ch := int(float64(w) / TargetRatio)
		crop = CropPlan{
			Width:   w,
			Height:  ch,
			OffsetX: 0,
			OffsetY: 0,
		}
	}

	if opts.EvenDimensions {
		crop.Width = evenDown(crop.Width)
		crop.Height = evenDown(crop.Height)
	}
	return crop
}

func computeBorder(crop CropPlan, opts Options) BorderSpec {
	thickness := int(float64(crop.Width)*borderPerWidth + 0.5)
	if thickness < opts.MinBorderPx {
		thickness = opts.MinBorderPx
	}
	radius := int(float64(crop.Width) * radiusPerWidth)

	// Neither may exceed half the smaller crop dimension, or the rounded
	// rectangle degenerates on tiny sources.
	limit := min(crop.Width, crop.Height) / 2
	if limit < 1 {
		limit = 1
	}
	if thickness > limit {
		thickness = limit
	}
	if radius > limit {
		radius = limit
	}

	return BorderSpec{ThicknessPx: thickness, RadiusPx: radius, Opacity: BorderOpacity}
}

func computeCanvas(crop CropPlan, border BorderSpec, opts Options) CanvasPlan {
	// Canvas is 1.2x the crop height, rounded to a multiple of 4, with the
	// width re-derived to preserve 3:4 exactly.
	canvasHeight := roundToMultiple(float64(crop.Height)*canvasScale, 4)
	canvasWidth := (canvasHeight / 4) * 3

	// If the canvas came out narrower than the bordered content, widen it
	// and re-derive the height from the width instead.
	contentWidth := crop.Width + border.ThicknessPx*2
	if canvasWidth < contentWidth {
		canvasWidth = contentWidth
		canvasHeight = roundToMultiple(float64(canvasWidth)*4.0/3.0, 4)
	}

	if opts.EvenDimensions {
		canvasWidth = evenDown(canvasWidth)
		canvasHeight = evenDown(canvasHeight)
	}

	return CanvasPlan{
		Width:  canvasWidth,
		Height: canvasHeight,
		PasteX: (canvasWidth - contentWidth) / 2,
		PasteY: 0,
	}
}

// VerticalPadding is the empty canvas height below the bordered content.
func (p *Plan) VerticalPadding() int {
	return p.Canvas.Height - (p.Crop.Height + p.Border.ThicknessPx*2)
}

func roundToMultiple(v float64, m int) int {
	return int(v/float64(m)+0.5) * m
}

func evenDown(v int) int {
	if v%2 != 0 {
		return v - 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
