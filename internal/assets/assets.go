// Package assets renders the rounded-corner mask and border overlay images
// used by the compositing filter graph. Both are pure functions of the
// geometry plan and are generated once per source, never per frame.
package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/framecast/spotlight/internal/geometry"
)

// Paths holds the on-disk locations of the generated overlay images.
// Both live inside the job's working directory; the caller owns deletion.
type Paths struct {
	Mask   string
	Border string
}

// Generate renders the mask and border PNGs for a plan into dir and
// returns their paths. baseName keeps the files identifiable when several
// jobs share a debugging session.
func Generate(dir, baseName string, plan *geometry.Plan) (Paths, error) {
	p := Paths{
		Mask:   filepath.Join(dir, baseName+"_mask.png"),
		Border: filepath.Join(dir, baseName+"_border.png"),
	}

	if err := writePNG(p.Mask, RenderMask(plan.Mask)); err != nil {
		return Paths{}, fmt.Errorf("render mask: %w", err)
	}
	if err := writePNG(p.Border, RenderBorder(plan.Border, plan.Crop)); err != nil {
		return Paths{}, fmt.Errorf("render border: %w", err)
	}
	return p, nil
}

// RenderMask produces the grayscale alpha mask: a white anti-aliased
// rounded rectangle covering the whole crop on a black background.
func RenderMask(spec geometry.MaskSpec) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, spec.Width, spec.Height))
	paintRoundedRect(func(x, y int, cov float64) {
		img.SetGray(x, y, color.Gray{Y: uint8(cov*255 + 0.5)})
	}, spec.Width, spec.Height, spec.RadiusPx)
	return img
}

// RenderBorder produces the border overlay: a rounded rectangle two
// thicknesses larger than the crop, filled white at the brand opacity.
func RenderBorder(spec geometry.BorderSpec, crop geometry.CropPlan) *image.NRGBA {
	w := crop.Width + spec.ThicknessPx*2
	h := crop.Height + spec.ThicknessPx*2
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	fill := spec.Opacity
	paintRoundedRect(func(x, y int, cov float64) {
		img.SetNRGBA(x, y, color.NRGBA{
			R: 255, G: 255, B: 255,
			A: uint8(cov*fill*255 + 0.5),
		})
	}, w, h, spec.RadiusPx+spec.ThicknessPx)
	return img
}

// paintRoundedRect calls set for every pixel of a w×h rounded rectangle
// with per-pixel coverage in [0,1]. Coverage is derived from the signed
// distance to the rounded-rect boundary, which gives a one-pixel
// anti-aliased edge without supersampling.
func paintRoundedRect(set func(x, y int, cov float64), w, h, radius int) {
	if radius < 0 {
		radius = 0
	}
	maxR := minInt(w, h) / 2
	if radius > maxR {
		radius = maxR
	}

	halfW := float64(w) / 2
	halfH := float64(h) / 2
	r := float64(radius)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Pixel center relative to the rectangle center.
			px := math.Abs(float64(x)+0.5-halfW) - (halfW - r)
			py := math.Abs(float64(y)+0.5-halfH) - (halfH - r)

			var d float64
			switch {
			case px > 0 && py > 0:
				d = math.Hypot(px, py) - r
			case px > py:
				d = px - r
			default:
				d = py - r
			}

			cov := 0.5 - d
			if cov > 1 {
				cov = 1
			} else if cov < 0 {
				cov = 0
			}
			set(x, y, cov)
		}
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
