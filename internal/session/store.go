// Package session keeps per-user conversation state and a bounded message
// history in the ephemeral store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/kv"
)

// Defaults.
const (
	DefaultTTL         = 24 * time.Hour
	DefaultHistorySize = 10
)

func stateKey(userID string) string   { return "state:" + userID }
func historyKey(userID string) string { return "history:" + userID }

// Session is one user's current state and its context.
type Session struct {
	UserID    string          `json:"user_id"`
	State     State           `json:"state"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Idle reports whether the user is at the main menu.
func (s *Session) Idle() bool {
	return s == nil || s.State == StateIdle
}

// Decode unmarshals the session context as T. It reports false when the
// session is nil, belongs to another state, or lacks required fields, so
// callers can fall back to the menu.
func Decode[T Record](s *Session) (T, bool) {
	var rec T
	if s == nil || s.State != rec.State() {
		return rec, false
	}
	if len(s.Data) > 0 {
		if err := json.Unmarshal(s.Data, &rec); err != nil {
			return rec, false
		}
	}
	if v, ok := any(rec).(validator); ok && !v.valid() {
		return rec, false
	}
	return rec, true
}

// Role is the author of a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// HistoryEntry is one turn of recent conversation.
type HistoryEntry struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	KV          kv.Store
	TTL         time.Duration
	HistorySize int
	Now         func() time.Time
	Logger      *zap.Logger
}

// Store reads and writes sessions and history.
type Store struct {
	kv          kv.Store
	ttl         time.Duration
	historySize int
	now         func() time.Time
	logger      *zap.Logger
}

// NewStore creates a Store.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("session: kv store is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		kv:          opts.KV,
		ttl:         opts.TTL,
		historySize: opts.HistorySize,
		now:         opts.Now,
		logger:      opts.Logger,
	}, nil
}

// Get returns the user's session. A missing session, or one whose stored
// state is no longer defined, is returned as an idle session; only store
// failures are errors.
func (s *Store) Get(ctx context.Context, userID string) (*Session, error) {
	idle := &Session{UserID: userID, State: StateIdle}
	raw, err := s.kv.Get(ctx, stateKey(userID))
	if kv.IsNotFound(err) {
		return idle, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", userID, err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("discarding undecodable session", zap.String("user_id", userID), zap.Error(err))
		return idle, nil
	}
	if !sess.State.Valid() {
		s.logger.Warn("discarding session with unknown state",
			zap.String("user_id", userID), zap.String("state", string(sess.State)))
		return idle, nil
	}
	sess.UserID = userID
	return &sess, nil
}

// Set replaces the user's state and context with rec.
func (s *Store) Set(ctx context.Context, userID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", rec.State(), err)
	}
	sess := Session{UserID: userID, State: rec.State(), Data: data, UpdatedAt: s.now()}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.kv.Set(ctx, stateKey(userID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("session: set %s: %w", userID, err)
	}
	return nil
}

// Reset drops the user's session, returning them to the menu.
func (s *Store) Reset(ctx context.Context, userID string) error {
	if err := s.kv.Del(ctx, stateKey(userID)); err != nil {
		return fmt.Errorf("session: reset %s: %w", userID, err)
	}
	return nil
}

// AddHistory appends an entry, evicting the oldest past the bound.
func (s *Store) AddHistory(ctx context.Context, userID string, role Role, content string) error {
	raw, err := json.Marshal(HistoryEntry{Role: role, Content: content, TS: s.now()})
	if err != nil {
		return fmt.Errorf("session: encode history: %w", err)
	}
	if err := s.kv.PushBounded(ctx, historyKey(userID), string(raw), s.historySize, s.ttl); err != nil {
		return fmt.Errorf("session: add history %s: %w", userID, err)
	}
	return nil
}

// History returns recent entries, oldest first. Undecodable entries are
// skipped.
func (s *Store) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	raws, err := s.kv.Range(ctx, historyKey(userID))
	if err != nil {
		return nil, fmt.Errorf("session: history %s: %w", userID, err)
	}
	out := make([]HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear removes the session and its history.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.kv.Del(ctx, stateKey(userID), historyKey(userID)); err != nil {
		return fmt.Errorf("session: clear %s: %w", userID, err)
	}
	return nil
}
