// Package idempotency turns at-least-once message delivery into
// exactly-once-effective processing.
//
// Each inbound message id owns two records in the ephemeral store: a
// short-lived processing lock taken with set-if-absent, and a long-lived
// processed marker written once handling finishes. A crash or unhandled
// error releases the lock without the marker so the message can be retried
// exactly once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/kv"
)

// Default lifetimes.
const (
	DefaultLockTTL      = 60 * time.Second
	DefaultProcessedTTL = 72 * time.Hour
	DefaultRetryLimit   = 1
)

// Decision is the outcome of Admit.
type Decision int

const (
	// Admitted means the caller owns the message and must call Complete or
	// Abort on the returned Ticket.
	Admitted Decision = iota
	// Processed means the message was already fully handled.
	Processed
	// InFlight means another worker holds the processing lock.
	InFlight
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Processed:
		return "processed"
	case InFlight:
		return "in_flight"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

func processingKey(id string) string { return "msg:processing:" + id }
func processedKey(id string) string  { return "msg:processed:" + id }
func attemptsKey(id string) string   { return "msg:attempts:" + id }

// GuardOpts holds parameters for creating a Guard.
type GuardOpts struct {
	Store        kv.Store
	LockTTL      time.Duration
	ProcessedTTL time.Duration
	// RetryLimit is how many aborted attempts are allowed to be retried.
	RetryLimit int
	Logger     *zap.Logger
}

// Guard admits inbound messages at most once.
type Guard struct {
	store        kv.Store
	lockTTL      time.Duration
	processedTTL time.Duration
	retryLimit   int
	logger       *zap.Logger
}

// NewGuard creates a Guard, applying default lifetimes.
func NewGuard(opts GuardOpts) (*Guard, error) {
	if opts.Store == nil {
		return nil, errors.New("idempotency: store is required")
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.ProcessedTTL <= 0 {
		opts.ProcessedTTL = DefaultProcessedTTL
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = DefaultRetryLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Guard{
		store:        opts.Store,
		lockTTL:      opts.LockTTL,
		processedTTL: opts.ProcessedTTL,
		retryLimit:   opts.RetryLimit,
		logger:       opts.Logger,
	}, nil
}

// Ticket is the caller's claim on an admitted message.
type Ticket struct {
	g         *Guard
	messageID string
	token     string
	// FailOpen is set when the store could not be consulted and the message
	// was admitted without a lock.
	FailOpen bool
	done     bool
}

// Admit decides whether the caller may process messageID. Store failures
// admit the message rather than drop it. Messages without an id cannot be
// deduplicated and are always admitted.
func (g *Guard) Admit(ctx context.Context, messageID string) (*Ticket, Decision) {
	log := g.logger.With(zap.String("message_id", messageID))
	if messageID == "" {
		return &Ticket{g: g, FailOpen: true}, Admitted
	}

	processed, err := g.isProcessed(ctx, messageID)
	if err != nil {
		log.Warn("processed marker lookup failed, admitting", zap.Error(err))
		return &Ticket{g: g, messageID: messageID, FailOpen: true}, Admitted
	}
	if processed {
		return nil, Processed
	}

	token := uuid.NewString()
	ok, err := g.store.SetNX(ctx, processingKey(messageID), token, g.lockTTL)
	if err != nil {
		log.Warn("processing lock failed, admitting", zap.Error(err))
		return &Ticket{g: g, messageID: messageID, FailOpen: true}, Admitted
	}
	if !ok {
		return nil, InFlight
	}

	// A worker may have finished and released the lock between the first
	// lookup and our SetNX.
	processed, err = g.isProcessed(ctx, messageID)
	if err == nil && processed {
		g.release(ctx, messageID, token)
		return nil, Processed
	}

	return &Ticket{g: g, messageID: messageID, token: token}, Admitted
}

func (g *Guard) isProcessed(ctx context.Context, messageID string) (bool, error) {
	_, err := g.store.Get(ctx, processedKey(messageID))
	if err == nil {
		return true, nil
	}
	if kv.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (g *Guard) markProcessed(ctx context.Context, messageID string) {
	if err := g.store.Set(ctx, processedKey(messageID), time.Now().UTC().Format(time.RFC3339), g.processedTTL); err != nil {
		g.logger.Warn("write processed marker", zap.String("message_id", messageID), zap.Error(err))
	}
}

func (g *Guard) release(ctx context.Context, messageID, token string) {
	if token == "" {
		return
	}
	if _, err := g.store.DelIfValue(ctx, processingKey(messageID), token); err != nil {
		g.logger.Warn("release processing lock", zap.String("message_id", messageID), zap.Error(err))
	}
}

// Complete records the message as processed and releases the lock. It is
// called after success and after handled failures alike.
func (t *Ticket) Complete(ctx context.Context) {
	if t == nil || t.done || t.messageID == "" {
		return
	}
	t.done = true
	t.g.markProcessed(ctx, t.messageID)
	t.g.release(ctx, t.messageID, t.token)
}

// Abort releases the lock without the processed marker so the message can be
// delivered again. Once the retry allowance is spent the message is marked
// processed instead.
func (t *Ticket) Abort(ctx context.Context) {
	if t == nil || t.done || t.messageID == "" {
		return
	}
	t.done = true
	g := t.g
	n, err := g.store.Incr(ctx, attemptsKey(t.messageID), g.processedTTL)
	if err != nil {
		g.logger.Warn("count aborted attempt", zap.String("message_id", t.messageID), zap.Error(err))
	} else if n > int64(g.retryLimit) {
		g.logger.Warn("retry allowance spent, marking processed",
			zap.String("message_id", t.messageID), zap.Int64("attempts", n))
		g.markProcessed(ctx, t.messageID)
	}
	g.release(ctx, t.messageID, t.token)
}
