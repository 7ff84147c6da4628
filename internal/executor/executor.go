// Package executor runs many chain invocations concurrently. The unit of
// concurrency is the whole chain: invocations are self-contained, share no
// mutable state, and coordinate only through the filesystem, so the pool
// needs no synchronization beyond distributing jobs and collecting results.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/ctxlog"
)

// Job is one self-contained chain invocation.
type Job struct {
	Name   string
	Chain  *chain.Chain
	Inputs []chain.Artifact
}

// Pool distributes chain invocations over a bounded number of workers.
type Pool struct {
	numWorkers int
}

// New creates a pool with the given worker count.
func New(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{numWorkers: numWorkers}
}

type result struct {
	name string
	err  error
}

// Run executes all jobs and blocks until every one has finished. A failing
// chain never affects its siblings: remaining jobs keep running, and the
// returned error aggregates the names of all failed chains while wrapping
// the first root cause.
func (p *Pool) Run(ctx context.Context, jobs []Job) error {
	logger := ctxlog.FromContext(ctx)

	jobChan := make(chan Job)
	results := make(chan result, len(jobs))

	var wg sync.WaitGroup
	logger.Debug("Starting worker pool.", "workers", p.numWorkers, "jobs", len(jobs))
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, jobChan, results, i)
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()
	close(results)

	var failed []string
	var rootCause error
	for r := range results {
		if r.err == nil {
			continue
		}
		failed = append(failed, r.name)
		if rootCause == nil {
			rootCause = r.err
		}
	}
	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	return nil
}

// worker is the core processing loop for a single concurrent worker.
func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup, jobChan <-chan Job, results chan<- result, workerID int) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for job := range jobChan {
		workerLogger := logger.With("workerID", workerID, "chain", job.Name)
		workerLogger.Debug("Worker picked up chain for execution.")

		err := job.Chain.Run(ctx, job.Inputs)
		if err != nil {
			workerLogger.Error("Chain execution failed.", "error", err)
		} else {
			workerLogger.Debug("Chain execution succeeded.")
		}
		results <- result{name: job.Name, err: err}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
