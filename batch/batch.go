// Package batch runs scheduled maintenance jobs (price backfill, snapshot
// replay) with retry and run records.
package batch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one job run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the record of one job execution.
type Run struct {
	ID         string // uuid
	Name       string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int // records processed, as reported by the job
	Error      string
}

// Recorder persists job run records. The store package implements it.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// Job is one retryable unit of work. It reports how many records it
// processed so the run record is meaningful even on partial progress.
type Job struct {
	Name string
	Do   func(ctx context.Context) (records int, err error)
}

const (
	defaultAttempts = 3
	defaultBackoff  = 2 * time.Second
)

// Runner executes jobs with bounded retry and records each run. Transient
// failures are retried with doubling backoff; the job itself decides nothing
// about retries and is simply called again.
type Runner struct {
	Recorder Recorder

	// Attempts is the maximum number of tries per job, defaultAttempts when 0.
	Attempts int
	// Backoff is the initial delay between tries, defaultBackoff when 0.
	// It doubles after every failed attempt.
	Backoff time.Duration
}

// Run executes one job to completion or exhaustion and records the outcome.
// The returned error is the last attempt's, wrapped with the job name.
func (r *Runner) Run(ctx context.Context, job Job) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	run := Run{
		ID:        uuid.NewString(),
		Name:      job.Name,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	r.record(ctx, run)

	var records int
	var err error
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		records, err = job.Do(ctx)
		if err == nil {
			break
		}
		log.Printf("[batch] %s attempt %d/%d failed: %v", job.Name, attempt, attempts, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	run.FinishedAt = time.Now().UTC()
	run.Records = records
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		r.record(ctx, run)
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	run.Status = StatusSucceeded
	r.record(ctx, run)
	log.Printf("[batch] %s succeeded: %d records in %s", job.Name, records, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}

// record persists the run state. Recording failures are logged, not
// propagated: the job outcome matters more than its bookkeeping.
func (r *Runner) record(ctx context.Context, run Run) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.RecordRun(ctx, run); err != nil {
		log.Printf("[batch] recording run %s of %s: %v", run.ID, run.Name, err)
	}
}
