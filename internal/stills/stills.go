// Package stills is the image branch of the formatter: the same crop
// and canvas geometry as the video path, composited in-process with the
// standard image pipeline instead of an external encoder.
package stills

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/framecast/spotlight/internal/assets"
	"github.com/framecast/spotlight/internal/geometry"
)

// jpegQuality matches the distribution requirement for still exports.
const jpegQuality = 95

// AllowedExtensions are the still-image inputs the bulk walker accepts.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// IsSupported reports whether path has a processable image extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range AllowedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Process reads one source image, applies the 3:4 crop and branded
// composite, and writes a JPEG to outputPath.
func Process(inputPath, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open %q: %w", inputPath, err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %q: %w", inputPath, err)
	}

	bounds := src.Bounds()
	plan, err := geometry.Compute(bounds.Dx(), bounds.Dy(), geometry.ImageOptions())
	if err != nil {
		return err
	}

	final := Compose(src, plan)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, final, &jpeg.Options{Quality: jpegQuality}); err != nil {
		out.Close()
		return fmt.Errorf("encode %q: %w", outputPath, err)
	}
	return out.Close()
}

// Compose renders the branded layout for a decoded source image:
// black canvas, border overlay, and the rounded-corner crop on top.
func Compose(src image.Image, plan *geometry.Plan) *image.RGBA {
	crop := plan.Crop
	canvas := plan.Canvas
	thickness := plan.Border.ThicknessPx

	final := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	draw.Draw(final, final.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	border := assets.RenderBorder(plan.Border, crop)
	borderRect := image.Rect(
		canvas.PasteX, canvas.PasteY,
		canvas.PasteX+border.Bounds().Dx(), canvas.PasteY+border.Bounds().Dy(),
	)
	draw.Draw(final, borderRect, border, image.Point{}, draw.Over)

	mask := assets.RenderMask(plan.Mask)
	contentRect := image.Rect(
		canvas.PasteX+thickness, canvas.PasteY+thickness,
		canvas.PasteX+thickness+crop.Width, canvas.PasteY+thickness+crop.Height,
	)
	cropOrigin := src.Bounds().Min.Add(image.Pt(crop.OffsetX, crop.OffsetY))
	draw.DrawMask(final, contentRect, src, cropOrigin, mask, image.Point{}, draw.Over)

	return final
}

// OutputName maps a source filename to its exported JPEG name.
func OutputName(inputName string) string {
	base := strings.TrimSuffix(inputName, filepath.Ext(inputName))
	return base + ".jpeg"
}
