package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/framecast/spotlight/internal/encoder"
	"github.com/framecast/spotlight/internal/job"
	"github.com/framecast/spotlight/internal/logging"
	"github.com/framecast/spotlight/internal/pipeline"
	"github.com/framecast/spotlight/internal/probe"
	"github.com/framecast/spotlight/internal/transcode"
)

// fakeProber serves canned media metadata and fails selected paths.
type fakeProber struct {
	failPath string
	// block, when set, holds every probe until the context is done.
	block bool
	// started receives one signal per probe call before blocking.
	started chan struct{}
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*probe.SourceMedia, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if path == f.failPath {
		return nil, fmt.Errorf("%w: %s: unreadable container", probe.ErrProbe, path)
	}
	return &probe.SourceMedia{
		Path: path, Width: 1920, Height: 1080,
		Duration: 10, FPS: 30, Codec: "h264", HasAudio: true,
	}, nil
}

// tinyTranscoder writes a small in-budget file on every invocation.
type tinyTranscoder struct{}

func (tinyTranscoder) Encode(_ context.Context, req transcode.Request) error {
	return os.WriteFile(req.OutputPath, []byte("mp4"), 0o644)
}

func testDeps(prober probe.Service) pipeline.Deps {
	return pipeline.Deps{
		Prober:     prober,
		Transcoder: tinyTranscoder{},
		Oracle:     transcode.StatOracle{},
		Caps:       &encoder.HostCapabilities{CPUThreads: 4, HardwareByFamily: map[encoder.Family]string{}},
		Log:        logging.New(logging.ERROR, false),
	}
}

func testJobs(t *testing.T, n int) []*job.EncodeJob {
	t.Helper()
	outDir := t.TempDir()
	jobs := make([]*job.EncodeJob, 0, n)
	for i := 0; i < n; i++ {
		src := fmt.Sprintf("in/clip_%d.mp4", i)
		out := filepath.Join(outDir, fmt.Sprintf("clip_%d.mp4", i))
		jobs = append(jobs, job.New(src, out, encoder.FamilyH264, 1024*1024, false))
	}
	return jobs
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	jobs := testJobs(t, 10)
	bad := jobs[3].SourcePath
	deps := testDeps(&fakeProber{failPath: bad})

	var mu sync.Mutex
	var events []Event
	onEvent := func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	results := RunBatch(context.Background(), deps, jobs, 4, onEvent)

	if len(results.All) != 10 {
		t.Fatalf("got %d results, want 10", len(results.All))
	}
	if n := results.Count(job.StatusSuccess); n != 9 {
		t.Errorf("successes = %d, want 9", n)
	}
	if n := results.Count(job.StatusFailed); n != 1 {
		t.Errorf("failures = %d, want 1", n)
	}

	badRes := results.BySource(bad)
	if badRes == nil || badRes.Status != job.StatusFailed {
		t.Fatalf("failing source result = %+v, want failed", badRes)
	}
	if badRes.Cause == "" {
		t.Error("failed result must carry a cause")
	}

	// Sibling outputs must exist despite the one failure.
	for _, j := range jobs {
		if j.SourcePath == bad {
			if _, err := os.Stat(j.OutputPath); !os.IsNotExist(err) {
				t.Errorf("failed job left an output file: %s", j.OutputPath)
			}
			continue
		}
		if _, err := os.Stat(j.OutputPath); err != nil {
			t.Errorf("missing sibling output: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 9 {
		t.Errorf("got %d progress events, want at least 9", len(events))
	}
	for _, e := range events {
		if e.Source == "" || e.JobID == "" || e.AttemptIndex < 1 {
			t.Errorf("malformed event: %+v", e)
		}
	}
}

func TestRunBatchCancellation(t *testing.T) {
	jobs := testJobs(t, 6)
	started := make(chan struct{}, len(jobs))
	deps := testDeps(&fakeProber{block: true, started: started})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan *Results, 1)
	go func() {
		done <- RunBatch(ctx, deps, jobs, 2, nil)
	}()

	// Cancel once both workers hold an in-flight job.
	<-started
	<-started
	cancel()

	results := <-done

	if len(results.All) == 0 {
		t.Fatal("in-flight jobs must still report terminal results")
	}
	if len(results.All) > len(jobs) {
		t.Fatalf("got %d results for %d jobs", len(results.All), len(jobs))
	}
	for _, res := range results.All {
		if res.Status != job.StatusFailed {
			t.Errorf("post-cancel result %s = %s, want failed", res.Job.SourcePath, res.Status)
		}
	}
	// At least one queued job must have been skipped by the dispatcher.
	if results.Count(job.StatusFailed) == len(jobs) {
		t.Logf("all %d jobs were dispatched before cancellation took effect", len(jobs))
	}
}

func TestRunBatchEmpty(t *testing.T) {
	deps := testDeps(&fakeProber{})
	results := RunBatch(context.Background(), deps, nil, 4, nil)
	if len(results.All) != 0 {
		t.Fatalf("got %d results for empty batch", len(results.All))
	}
}

func TestResultsBySourceMissing(t *testing.T) {
	r := &Results{}
	if got := r.BySource("never/dispatched.mp4"); got != nil {
		t.Errorf("BySource on empty results = %+v, want nil", got)
	}
}
