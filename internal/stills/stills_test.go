package stills

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/framecast/spotlight/internal/geometry"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestComposeLayout(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	src := solidImage(800, 400, red)

	plan, err := geometry.Compute(800, 400, geometry.ImageOptions())
	if err != nil {
		t.Fatal(err)
	}
	final := Compose(src, plan)

	b := final.Bounds()
	if b.Dx() != plan.Canvas.Width || b.Dy() != plan.Canvas.Height {
		t.Fatalf("canvas is %dx%d, want %dx%d", b.Dx(), b.Dy(), plan.Canvas.Width, plan.Canvas.Height)
	}

	// Canvas corner sits outside the pasted content: pure black.
	if c := final.RGBAAt(0, 0); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("canvas corner = %v, want black", c)
	}

	// Canvas center falls inside the opaque crop body: source color.
	if c := final.RGBAAt(b.Dx()/2, b.Dy()/2); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("content center = %v, want red", c)
	}

	// Just inside the border band, left of the content, the white
	// overlay lightens the black canvas.
	bx := plan.Canvas.PasteX + 1
	by := plan.Canvas.PasteY + plan.Border.ThicknessPx + plan.Crop.Height/2
	if c := final.RGBAAt(bx, by); c.R == 0 {
		t.Errorf("border band pixel = %v, want lightened by overlay", c)
	}
}

func TestProcessWritesJPEG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.png")
	out := filepath.Join(dir, "photo.jpeg")

	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solidImage(400, 800, color.RGBA{G: 200, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := Process(in, out); err != nil {
		t.Fatalf("Process: %v", err)
	}

	of, err := os.Open(out)
	if err != nil {
		t.Fatalf("missing output: %v", err)
	}
	defer of.Close()
	img, err := jpeg.Decode(of)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}

	plan, err := geometry.Compute(400, 800, geometry.ImageOptions())
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != plan.Canvas.Width || b.Dy() != plan.Canvas.Height {
		t.Errorf("output is %dx%d, want %dx%d", b.Dx(), b.Dy(), plan.Canvas.Width, plan.Canvas.Height)
	}
}

func TestProcessRejectsUndecodable(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(in, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Process(in, filepath.Join(dir, "out.jpeg")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"a.JPG", true},
		{"a.jpeg", true},
		{"a.gif", true},
		{"a.mp4", false},
		{"a.webp", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.path); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.png", "photo.jpeg"},
		{"photo.jpg", "photo.jpeg"},
		{"archive.tar.gif", "archive.tar.jpeg"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
