// Package daemon exposes the process-supervising HTTP API that starts,
// inspects, and stops crawl jobs. The registry is single-job
// (allowMultiJobs=false): only one job may run at a time, and the last
// 100 completed runs are kept for inspection.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rohmanhakim/newscrawl/internal/scheduler"
)

const maxHistory = 100

// JobStatus is the lifecycle state of a registered job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobRecord is the daemon's view of one job: the registry returns these
// from every endpoint, never the scheduler's internal types directly.
type JobRecord struct {
	ID         string              `json:"id"`
	Status     JobStatus           `json:"status"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
	Summary    *scheduler.RunSummary `json:"summary,omitempty"`
	Error      string              `json:"error,omitempty"`
}

var (
	// ErrJobRunning is returned by Start when a job is already active,
	// since allowMultiJobs is false.
	ErrJobRunning = errors.New("daemon: a job is already running")
	// ErrJobNotFound is returned when the requested job ID is unknown.
	ErrJobNotFound = errors.New("daemon: job not found")
	// ErrJobNotRunning is returned by Stop when the job is not active.
	ErrJobNotRunning = errors.New("daemon: job is not running")
)

// Registry holds at most one running job plus a bounded history of past
// runs, guarded by a single mutex since job starts/stops are rare
// relative to the crawl's own internal concurrency.
type Registry struct {
	mu sync.Mutex

	active       *JobRecord
	activeCancel context.CancelFunc
	history      []JobRecord
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Start registers jobID as the active job and calls run in a new
// goroutine, recording its outcome on completion. Stop cancels the
// context passed to run.
func (r *Registry) Start(jobID string, run func(ctx context.Context) (scheduler.RunSummary, error)) error {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return ErrJobRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	rec := JobRecord{ID: jobID, Status: JobRunning, StartedAt: time.Now()}
	r.active = &rec
	r.activeCancel = cancel
	r.mu.Unlock()

	go func() {
		summary, err := run(ctx)
		finished := time.Now()

		r.mu.Lock()
		defer r.mu.Unlock()
		done := JobRecord{ID: jobID, StartedAt: rec.StartedAt, FinishedAt: &finished}
		if err != nil {
			done.Status = JobFailed
			done.Error = err.Error()
		} else {
			done.Status = JobCompleted
			done.Summary = &summary
		}
		r.pushHistory(done)
		if r.active != nil && r.active.ID == jobID {
			r.active = nil
			r.activeCancel = nil
		}
	}()

	return nil
}

// pushHistory appends rec, evicting the oldest entry once maxHistory is
// exceeded. Caller holds r.mu.
func (r *Registry) pushHistory(rec JobRecord) {
	r.history = append(r.history, rec)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
}

// Stop cancels the active job if its ID matches jobID.
func (r *Registry) Stop(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.ID != jobID {
		return ErrJobNotRunning
	}
	r.activeCancel()
	return nil
}

// Get returns the job record for jobID, whether active or historical.
func (r *Registry) Get(jobID string) (JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.ID == jobID {
		return *r.active, nil
	}
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].ID == jobID {
			return r.history[i], nil
		}
	}
	return JobRecord{}, ErrJobNotFound
}

// List returns the active job (if any) followed by history, most
// recent first.
func (r *Registry) List() []JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobRecord, 0, len(r.history)+1)
	if r.active != nil {
		out = append(out, *r.active)
	}
	for i := len(r.history) - 1; i >= 0; i-- {
		out = append(out, r.history[i])
	}
	return out
}
