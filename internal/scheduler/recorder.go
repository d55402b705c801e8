package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Job is a job held by a Recorder.
type Job struct {
	ID      string
	Payload Payload
	At      time.Time
}

// Recorder is an in-memory Scheduler that never fires. It records what was
// scheduled so tests can assert on it.
type Recorder struct {
	mu        sync.Mutex
	jobs      map[string]Job
	Cancelled []string
}

var _ Scheduler = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{jobs: make(map[string]Job)}
}

func (r *Recorder) Schedule(_ context.Context, jobID string, p Payload, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[jobID] = Job{ID: jobID, Payload: p, At: at}
	return nil
}

func (r *Recorder) Cancel(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	r.Cancelled = append(r.Cancelled, jobID)
	return nil
}

// Get returns the pending job with id.
func (r *Recorder) Get(jobID string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	return j, ok
}

// Jobs returns all pending jobs ordered by id.
func (r *Recorder) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
