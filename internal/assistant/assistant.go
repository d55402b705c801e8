// Package assistant is the conversation engine: it admits inbound chat
// messages, gates them behind registration and login, and routes them to
// control commands, pending confirmations, quick actions, the wizard state
// machine or the natural-language fallback.
package assistant

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zulandar/agenda/internal/auth"
	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/config"
	"github.com/zulandar/agenda/internal/confirm"
	"github.com/zulandar/agenda/internal/idempotency"
	"github.com/zulandar/agenda/internal/kv"
	"github.com/zulandar/agenda/internal/metrics"
	"github.com/zulandar/agenda/internal/nlp"
	"github.com/zulandar/agenda/internal/quickaction"
	"github.com/zulandar/agenda/internal/recurrence"
	"github.com/zulandar/agenda/internal/scheduler"
	"github.com/zulandar/agenda/internal/session"
)

// Opts holds parameters for creating an Assistant.
type Opts struct {
	Config     *config.Config
	DB         *gorm.DB
	KV         kv.Store
	Adapter    chat.Adapter
	Classifier nlp.Classifier      // defaults to nlp.Nop
	Scheduler  scheduler.Scheduler // reminder jobs
	Metrics    *metrics.Metrics    // defaults to a private registry
	Logger     *zap.Logger
	Now        func() time.Time
	// PINHashCost overrides the bcrypt cost; tests lower it.
	PINHashCost int
}

// Assistant owns every collaborator of the message pipeline.
type Assistant struct {
	cfg        *config.Config
	db         *gorm.DB
	adapter    chat.Adapter
	classifier nlp.Classifier
	policy     nlp.Policy
	sch        scheduler.Scheduler
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
	defaultLoc *time.Location

	guard    *idempotency.Guard
	gate     *auth.Gate
	sessions *session.Store
	confirms *confirm.Store
	quick    *quickaction.Store
	resolver *quickaction.Resolver
	splitter *recurrence.Splitter
}

// New creates an Assistant and the stores it keeps in kv.
func New(opts Opts) (*Assistant, error) {
	if opts.Config == nil {
		return nil, errors.New("assistant: config is required")
	}
	if opts.DB == nil {
		return nil, errors.New("assistant: db is required")
	}
	if opts.KV == nil {
		return nil, errors.New("assistant: kv store is required")
	}
	if opts.Adapter == nil {
		return nil, errors.New("assistant: adapter is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("assistant: scheduler is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = nlp.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := opts.Config
	policy := nlp.Policy{
		ReadOnly: cfg.NLP.ReadOnlyThreshold,
		Mutate:   cfg.NLP.MutateThreshold,
		Create:   cfg.NLP.CreateThreshold,
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	ttl := cfg.TTL

	guard, err := idempotency.NewGuard(idempotency.GuardOpts{
		Store:        opts.KV,
		LockTTL:      config.Seconds(ttl.ProcessingLockSec),
		ProcessedTTL: config.Seconds(ttl.ProcessedMarkerSec),
		RetryLimit:   ttl.ProcessingRetryLimit,
		Logger:       opts.Logger.Named("idempotency"),
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	gate, err := auth.NewGate(auth.GateOpts{
		DB:          opts.DB,
		KV:          opts.KV,
		MaxAttempts: cfg.Auth.MaxPINAttempts,
		Lockout:     time.Duration(cfg.Auth.LockoutMinutes) * time.Minute,
		TTL:         time.Duration(cfg.Auth.SessionHours) * time.Hour,
		Timezone:    cfg.Timezone,
		HashCost:    opts.PINHashCost,
		Now:         opts.Now,
		Logger:      opts.Logger.Named("auth"),
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	sessions, err := session.NewStore(session.StoreOpts{
		KV:          opts.KV,
		TTL:         config.Seconds(ttl.SessionSec),
		HistorySize: cfg.NLP.HistorySize,
		Now:         opts.Now,
		Logger:      opts.Logger.Named("session"),
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	confirms, err := confirm.NewStore(opts.KV, config.Seconds(ttl.ConfirmationSec))
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	quick, err := quickaction.NewStore(quickaction.StoreOpts{
		KV:         opts.KV,
		MappingTTL: config.Seconds(ttl.EntityMappingSec),
		ContextTTL: config.Seconds(ttl.QuickContextSec),
		HintTTL:    config.Seconds(ttl.HintCounterSec),
		HintCap:    ttl.HintCap,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	resolver, err := quickaction.NewResolver(quick)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	splitter, err := recurrence.NewSplitter(recurrence.SplitterOpts{
		DB:        opts.DB,
		Scheduler: opts.Scheduler,
		Now:       opts.Now,
		Grace:     config.Seconds(cfg.TTL.PastGraceSec),
		Logger:    opts.Logger.Named("recurrence"),
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	return &Assistant{
		cfg:        cfg,
		db:         opts.DB,
		adapter:    opts.Adapter,
		classifier: opts.Classifier,
		policy:     policy,
		sch:        opts.Scheduler,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
		defaultLoc: cfg.Location(),
		guard:      guard,
		gate:       gate,
		sessions:   sessions,
		confirms:   confirms,
		quick:      quick,
		resolver:   resolver,
		splitter:   splitter,
	}, nil
}

// location returns the zone named tz, or the configured default.
func (a *Assistant) location(tz string) *time.Location {
	if tz == "" {
		return a.defaultLoc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return a.defaultLoc
	}
	return loc
}

func (a *Assistant) grace() time.Duration {
	return config.Seconds(a.cfg.TTL.PastGraceSec)
}
