// Package scheduler runs delayed one-shot jobs. The assistant only asks for
// jobs to be scheduled or cancelled; the scheduler calls back a Handler when
// a job is due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Payload is what a job carries back to its handler.
type Payload struct {
	Kind     string `json:"kind"` // e.g. "reminder"
	UserID   string `json:"user_id"`
	EntityID string `json:"entity_id"`
}

// Handler runs a due job.
type Handler func(ctx context.Context, jobID string, p Payload)

// Scheduler schedules and cancels one-shot jobs by id. Scheduling an id
// that is already pending replaces it.
type Scheduler interface {
	Schedule(ctx context.Context, jobID string, p Payload, at time.Time) error
	Cancel(ctx context.Context, jobID string) error
}

// GocronOpts holds parameters for creating a Gocron scheduler.
type GocronOpts struct {
	Handler Handler
	Logger  *zap.Logger
	Now     func() time.Time
}

type entry struct {
	job   gocron.Job
	token string
}

// Gocron is a Scheduler backed by an in-process gocron scheduler.
type Gocron struct {
	s       gocron.Scheduler
	handler Handler
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	jobs map[string]entry
}

var _ Scheduler = (*Gocron)(nil)

// NewGocron creates a scheduler. Call Start to begin running jobs.
func NewGocron(opts GocronOpts) (*Gocron, error) {
	if opts.Handler == nil {
		return nil, errors.New("scheduler: handler is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("scheduler: create: %w", err)
	}
	return &Gocron{
		s:       s,
		handler: opts.Handler,
		logger:  opts.Logger,
		now:     opts.Now,
		jobs:    make(map[string]entry),
	}, nil
}

// Start begins running jobs.
func (g *Gocron) Start() {
	g.s.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (g *Gocron) Stop() error {
	if err := g.s.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	return nil
}

// Schedule runs p at at, replacing any pending job with the same id. A time
// that has already passed runs immediately.
func (g *Gocron) Schedule(_ context.Context, jobID string, p Payload, at time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeLocked(jobID)

	start := gocron.OneTimeJobStartDateTime(at)
	if !at.After(g.now()) {
		start = gocron.OneTimeJobStartImmediately()
	}
	token := uuid.NewString()
	job, err := g.s.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() { g.fire(jobID, token, p) }),
		gocron.WithName(jobID),
		gocron.WithTags(p.Kind, p.UserID),
	)
	if err != nil {
		return fmt.Errorf("scheduler: schedule %s: %w", jobID, err)
	}
	g.jobs[jobID] = entry{job: job, token: token}
	g.logger.Debug("job scheduled", zap.String("job_id", jobID), zap.Time("at", at))
	return nil
}

// Cancel removes a pending job. Unknown ids are ignored.
func (g *Gocron) Cancel(_ context.Context, jobID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(jobID)
	return nil
}

// Pending reports whether jobID is scheduled and has not fired.
func (g *Gocron) Pending(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.jobs[jobID]
	return ok
}

func (g *Gocron) removeLocked(jobID string) {
	e, ok := g.jobs[jobID]
	if !ok {
		return
	}
	delete(g.jobs, jobID)
	if err := g.s.RemoveJob(e.job.ID()); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		g.logger.Warn("remove job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (g *Gocron) fire(jobID, token string, p Payload) {
	g.mu.Lock()
	e, ok := g.jobs[jobID]
	if !ok || e.token != token {
		g.mu.Unlock()
		return
	}
	delete(g.jobs, jobID)
	g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("job panicked", zap.String("job_id", jobID), zap.Any("panic", r))
		}
	}()
	g.handler(context.Background(), jobID, p)
}
