package job

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/framecast/spotlight/internal/encoder"
)

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New("in/a.mp4", "out/a.mp4", encoder.FamilyH264, 10<<20, true)
	b := New("in/b.mp4", "out/b.mp4", encoder.FamilyH264, 10<<20, true)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("job IDs not unique: %q vs %q", a.ID, b.ID)
	}
	if a.Container != "mp4" {
		t.Errorf("container = %q, want mp4", a.Container)
	}
	if a.MaxOutputBytes != 10<<20 {
		t.Errorf("max bytes = %d, want %d", a.MaxOutputBytes, 10<<20)
	}
}

func TestWorkdirLifecycle(t *testing.T) {
	j := New("in/a.mp4", "out/a.mp4", encoder.FamilyH264, 10<<20, false)

	wd, err := NewWorkdir(j)
	if err != nil {
		t.Fatalf("NewWorkdir: %v", err)
	}
	if _, err := os.Stat(wd.Path); err != nil {
		t.Fatalf("workdir missing: %v", err)
	}

	// Leftover files must not survive Release.
	if err := os.WriteFile(filepath.Join(wd.Path, "attempt_1.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := wd.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(wd.Path); !os.IsNotExist(err) {
		t.Errorf("workdir still present after release")
	}
}

func TestReleaseOnNilAndEmpty(t *testing.T) {
	var wd *Workdir
	if err := wd.Release(); err != nil {
		t.Errorf("nil workdir release: %v", err)
	}
	if err := (&Workdir{}).Release(); err != nil {
		t.Errorf("empty workdir release: %v", err)
	}
}

func TestAttemptPath(t *testing.T) {
	j := New("in/a.mp4", "out/a.mp4", encoder.FamilyH264, 10<<20, false)
	wd := &Workdir{Path: "/tmp/work"}

	p := wd.AttemptPath(j, 2)
	if filepath.Dir(p) != "/tmp/work" {
		t.Errorf("attempt path %q escapes workdir", p)
	}
	if !strings.HasSuffix(p, "attempt_2.mp4") {
		t.Errorf("attempt path = %q, want attempt_2.mp4 suffix", p)
	}
}

func TestFailedResult(t *testing.T) {
	j := New("in/a.mp4", "out/a.mp4", encoder.FamilyH264, 10<<20, false)
	res := Failed(j, nil, nil, ErrInterrupted)

	if res.Status != StatusFailed {
		t.Errorf("status = %s, want failed", res.Status)
	}
	if res.Cause != ErrInterrupted.Error() {
		t.Errorf("cause = %q, want %q", res.Cause, ErrInterrupted.Error())
	}
	if res.FinalPath != "" {
		t.Errorf("failed result must not claim an artifact, got %q", res.FinalPath)
	}
}
