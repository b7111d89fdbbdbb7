// Package job defines the per-source unit of work, its attempt history,
// and the job-scoped working directory whose cleanup is guaranteed on
// every exit path.
package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/probe"
)

// Status is the terminal outcome of one job.
type Status string

const (
	// StatusSuccess means the final artifact met the size budget.
	StatusSuccess Status = "success"
	// StatusSizeLimitNotMet means attempts were exhausted while still
	// over budget; the smallest artifact is kept with a warning.
	StatusSizeLimitNotMet Status = "size_limit_not_met"
	// StatusFailed means a fatal error (probe, encode, cancellation)
	// aborted the job.
	StatusFailed Status = "failed"
)

// ErrInterrupted marks a job aborted by operator cancellation.
var ErrInterrupted = errors.New("interrupted")

// EncodeJob is one bulk-mode work item. Immutable after construction.
type EncodeJob struct {
	ID              string
	SourcePath      string
	CodecFamily     encoder.Family
	Container       string
	HardwareAllowed bool
	MaxOutputBytes  int64
	OutputPath      string
}

// New builds a job with a fresh unique ID.
func New(sourcePath, outputPath string, family encoder.Family, maxBytes int64, hardwareAllowed bool) *EncodeJob {
	return &EncodeJob{
		ID:              uuid.NewString(),
		SourcePath:      sourcePath,
		CodecFamily:     family,
		Container:       "mp4",
		HardwareAllowed: hardwareAllowed,
		MaxOutputBytes:  maxBytes,
		OutputPath:      outputPath,
	}
}

// Attempt records one encode attempt. Attempts are strictly ordered; an
// attempt never starts before the prior one's size measurement finished.
type Attempt struct {
	PassIndex         int
	Mode              string
	TargetBitrateKbps int
	OutputPath        string
	OutputSizeBytes   int64
	Succeeded         bool
	Err               error
}

// Result is created at job start and finalized exactly once at a
// terminal state. It is owned by the job until handed to the scheduler's
// collector.
type Result struct {
	Job       *EncodeJob
	Source    *probe.SourceMedia // nil when probing failed
	FinalPath string
	Attempts  []Attempt
	Status    Status
	Cause     string
	Elapsed   time.Duration
}

// Failed builds a terminal failed result with a human-readable cause.
func Failed(j *EncodeJob, src *probe.SourceMedia, attempts []Attempt, err error) *Result {
	return &Result{
		Job:      j,
		Source:   src,
		Attempts: attempts,
		Status:   StatusFailed,
		Cause:    err.Error(),
	}
}

// Workdir is the job-unique temporary directory holding overlay assets,
// pass logs, and intermediate attempt files.
type Workdir struct {
	Path string
}

// NewWorkdir creates the job's private temp directory. Callers must
// Release it on every exit path, including cancellation and failure.
func NewWorkdir(j *EncodeJob) (*Workdir, error) {
	dir, err := os.MkdirTemp("", "spotlight-"+j.ID)
	if err != nil {
		return nil, fmt.Errorf("create job workdir: %w", err)
	}
	return &Workdir{Path: dir}, nil
}

// AttemptPath returns the output path for attempt n inside the workdir.
func (w *Workdir) AttemptPath(j *EncodeJob, n int) string {
	return filepath.Join(w.Path, fmt.Sprintf("attempt_%d.%s", n, j.Container))
}

// Release removes the directory and everything in it. Best effort: a
// failed removal is returned for logging but never aborts the caller.
func (w *Workdir) Release() error {
	if w == nil || w.Path == "" {
		return nil
	}
	return os.RemoveAll(w.Path)
}
