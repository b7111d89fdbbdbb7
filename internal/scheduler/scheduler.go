// Package scheduler fans the per-source pipeline across a bounded pool
// of workers. One job's failure never affects its siblings; operator
// cancellation halts new dispatch and lets in-flight jobs terminate.
package scheduler

import (
	"context"
	"sync"

	"github.com/framecast/spotlight/internal/job"
	"github.com/framecast/spotlight/internal/pipeline"
)

// Event is attempt-level progress feedback for caller-rendered output.
type Event struct {
	Source       string
	JobID        string
	AttemptIndex int
	SizeBytes    int64
}

// Results aggregates terminal job outcomes, keyed by source identity.
// Order between sibling jobs is unspecified.
type Results struct {
	All []*job.Result
}

// BySource returns the result for a source path, or nil when the job
// was never dispatched (for example after cancellation).
func (r *Results) BySource(path string) *job.Result {
	for _, res := range r.All {
		if res.Job.SourcePath == path {
			return res
		}
	}
	return nil
}

// Count returns how many results carry the given status.
func (r *Results) Count(status job.Status) int {
	n := 0
	for _, res := range r.All {
		if res.Status == status {
			n++
		}
	}
	return n
}

// RunBatch executes up to workers jobs concurrently and blocks until
// every dispatched job reaches a terminal state. onEvent may be nil.
//
// Cancelling ctx stops dispatch of queued jobs; jobs already running
// are killed through the context and report Failed with cleanup done by
// the pipeline. Results for jobs that were never dispatched are absent.
func RunBatch(ctx context.Context, deps pipeline.Deps, jobs []*job.EncodeJob, workers int, onEvent func(Event)) *Results {
	if workers < 1 {
		workers = 1
	}
	if len(jobs) > 0 && workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan *job.EncodeJob)
	resultCh := make(chan *job.Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				resultCh <- runOne(ctx, deps, j, onEvent)
			}
		}()
	}

	// Dispatcher: stops feeding the queue once ctx is cancelled.
	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case <-ctx.Done():
				return
			case queue <- j:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := &Results{}
	for res := range resultCh {
		results.All = append(results.All, res)
	}
	return results
}

// runOne executes a single job with its progress callback bound to the
// job's source identity. Dependencies are copied per job so sibling
// jobs never share mutable state.
func runOne(ctx context.Context, deps pipeline.Deps, j *job.EncodeJob, onEvent func(Event)) *job.Result {
	if onEvent != nil {
		deps.Progress = func(attempt int, size int64) {
			onEvent(Event{
				Source:       j.SourcePath,
				JobID:        j.ID,
				AttemptIndex: attempt,
				SizeBytes:    size,
			})
		}
	}
	return pipeline.Process(ctx, deps, j)
}
