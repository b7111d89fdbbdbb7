package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/framecast/spotlight/internal/geometry"
)

func testPlan(t *testing.T) *geometry.Plan {
	t.Helper()
	plan, err := geometry.Compute(800, 400, geometry.VideoOptions())
	if err != nil {
		t.Fatal(err)
	}
	return plan
}

func TestRenderMaskCoverage(t *testing.T) {
	plan := testPlan(t)
	mask := RenderMask(plan.Mask)

	b := mask.Bounds()
	if b.Dx() != plan.Crop.Width || b.Dy() != plan.Crop.Height {
		t.Fatalf("mask is %dx%d, want %dx%d", b.Dx(), b.Dy(), plan.Crop.Width, plan.Crop.Height)
	}

	// Center is fully opaque.
	if v := mask.GrayAt(b.Dx()/2, b.Dy()/2).Y; v != 255 {
		t.Errorf("center coverage = %d, want 255", v)
	}
	// The very corner pixel lies outside the rounded corner.
	if v := mask.GrayAt(0, 0).Y; v != 0 {
		t.Errorf("corner coverage = %d, want 0", v)
	}
	// Edge midpoints are inside the rectangle body.
	if v := mask.GrayAt(b.Dx()/2, 0).Y; v == 0 {
		t.Errorf("top edge midpoint should be covered, got 0")
	}
}

func TestRenderBorderOpacityAndSize(t *testing.T) {
	plan := testPlan(t)
	border := RenderBorder(plan.Border, plan.Crop)

	wantW := plan.Crop.Width + plan.Border.ThicknessPx*2
	wantH := plan.Crop.Height + plan.Border.ThicknessPx*2
	b := border.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Fatalf("border is %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}

	// Interior alpha matches the brand opacity (0.15 * 255, rounded).
	center := border.NRGBAAt(b.Dx()/2, b.Dy()/2)
	wantAlpha := uint8(plan.Border.Opacity*255 + 0.5)
	if center.A != wantAlpha {
		t.Errorf("center alpha = %d, want %d", center.A, wantAlpha)
	}
	if center.R != 255 || center.G != 255 || center.B != 255 {
		t.Errorf("border fill = %v, want white", center)
	}
	// Rounded corner stays fully transparent.
	if a := border.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("corner alpha = %d, want 0", a)
	}
}

func TestRenderDeterministic(t *testing.T) {
	plan := testPlan(t)
	a := RenderMask(plan.Mask)
	b := RenderMask(plan.Mask)
	if len(a.Pix) != len(b.Pix) {
		t.Fatal("mask buffers differ in size")
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("mask pixel %d differs across renders", i)
		}
	}
}

func TestGenerateWritesFiles(t *testing.T) {
	plan := testPlan(t)
	dir := t.TempDir()

	paths, err := Generate(dir, "job42", plan)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, p := range []string{paths.Mask, paths.Border} {
		if filepath.Dir(p) != dir {
			t.Errorf("asset %q written outside job dir %q", p, dir)
		}
		fi, err := os.Stat(p)
		if err != nil {
			t.Errorf("missing asset: %v", err)
			continue
		}
		if fi.Size() == 0 {
			t.Errorf("asset %q is empty", p)
		}
	}
}
