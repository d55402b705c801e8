// Package confirm implements the yes/no gate in front of destructive or
// ambiguous actions. A user has at most one pending confirmation; storing a
// new one replaces the old, and consuming one removes it.
package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/agenda/internal/kv"
	"github.com/zulandar/agenda/internal/models"
)

// DefaultTTL is how long a pending confirmation waits for an answer.
const DefaultTTL = 60 * time.Second

// Action is what a confirmed record executes.
type Action string

const (
	ActionDelete     Action = "delete"
	ActionComplete   Action = "complete"
	ActionReschedule Action = "reschedule"
)

// Pending is an action awaiting yes/no.
type Pending struct {
	Action      Action            `json:"action"`
	Kind        models.EntityKind `json:"kind"`
	EntityID    string            `json:"entity_id"`
	EntityLabel string            `json:"entity_label"`
	NewTime     *time.Time        `json:"new_time,omitempty"` // reschedule only
}

func key(userID string) string { return "confirm:" + userID }

// Store persists pending confirmations.
type Store struct {
	kv  kv.Store
	ttl time.Duration
}

// NewStore creates a Store. A zero ttl uses DefaultTTL.
func NewStore(store kv.Store, ttl time.Duration) (*Store, error) {
	if store == nil {
		return nil, errors.New("confirm: kv store is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: store, ttl: ttl}, nil
}

// Put stores p as the user's pending confirmation, superseding any other.
func (s *Store) Put(ctx context.Context, userID string, p Pending) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("confirm: encode: %w", err)
	}
	if err := s.kv.Set(ctx, key(userID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("confirm: put %s: %w", userID, err)
	}
	return nil
}

// Peek returns the pending confirmation without consuming it, or nil.
func (s *Store) Peek(ctx context.Context, userID string) (*Pending, error) {
	p, _, err := s.load(ctx, userID)
	return p, err
}

// Take consumes the pending confirmation. Only one caller receives a given
// record; later callers get nil.
func (s *Store) Take(ctx context.Context, userID string) (*Pending, error) {
	p, raw, err := s.load(ctx, userID)
	if err != nil || p == nil {
		return nil, err
	}
	ok, err := s.kv.DelIfValue(ctx, key(userID), raw)
	if err != nil {
		return nil, fmt.Errorf("confirm: take %s: %w", userID, err)
	}
	if !ok {
		return nil, nil
	}
	return p, nil
}

// Clear discards any pending confirmation.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.kv.Del(ctx, key(userID)); err != nil {
		return fmt.Errorf("confirm: clear %s: %w", userID, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, userID string) (*Pending, string, error) {
	raw, err := s.kv.Get(ctx, key(userID))
	if kv.IsNotFound(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("confirm: get %s: %w", userID, err)
	}
	var p Pending
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.EntityID == "" {
		// Unusable record: drop it so the user is not stuck behind it.
		// A failed delete is retried by the next load.
		_ = s.kv.Del(ctx, key(userID))
		return nil, "", nil
	}
	return &p, raw, nil
}
