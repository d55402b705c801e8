// Package quickaction resolves replies to previously sent messages into
// direct actions on the entities those messages listed.
package quickaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/agenda/internal/kv"
	"github.com/zulandar/agenda/internal/models"
)

// Defaults.
const (
	DefaultMappingTTL = 72 * time.Hour
	DefaultContextTTL = 5 * time.Minute
	DefaultHintTTL    = 30 * 24 * time.Hour
	DefaultHintCap    = 3
)

func mappingKey(messageID string) string { return "msg:entity:" + messageID }
func contextKey(userID string) string    { return "ctx:" + userID }
func hintKey(userID string) string       { return "hint:quick:" + userID }

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	KV         kv.Store
	MappingTTL time.Duration
	ContextTTL time.Duration
	HintTTL    time.Duration
	HintCap    int
}

// Store keeps sent-message mappings, the short-lived entity context handed
// to the next classifier call, and the usage-hint counter.
type Store struct {
	kv         kv.Store
	mappingTTL time.Duration
	contextTTL time.Duration
	hintTTL    time.Duration
	hintCap    int
}

// NewStore creates a Store.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("quickaction: kv store is required")
	}
	if opts.MappingTTL <= 0 {
		opts.MappingTTL = DefaultMappingTTL
	}
	if opts.ContextTTL <= 0 {
		opts.ContextTTL = DefaultContextTTL
	}
	if opts.HintTTL <= 0 {
		opts.HintTTL = DefaultHintTTL
	}
	if opts.HintCap <= 0 {
		opts.HintCap = DefaultHintCap
	}
	return &Store{
		kv:         opts.KV,
		mappingTTL: opts.MappingTTL,
		contextTTL: opts.ContextTTL,
		hintTTL:    opts.HintTTL,
		hintCap:    opts.HintCap,
	}, nil
}

// Map records that the sent message enumerated refs, in display order.
func (s *Store) Map(ctx context.Context, messageID string, refs []models.EntityRef) error {
	if messageID == "" || len(refs) == 0 {
		return nil
	}
	return s.put(ctx, mappingKey(messageID), refs, s.mappingTTL)
}

// Lookup returns the refs mapped to messageID, or nil when the message
// listed nothing or the mapping expired.
func (s *Store) Lookup(ctx context.Context, messageID string) ([]models.EntityRef, error) {
	if messageID == "" {
		return nil, nil
	}
	return s.get(ctx, mappingKey(messageID))
}

// SeedContext stores refs as the entity context of the user's next free
// text turn.
func (s *Store) SeedContext(ctx context.Context, userID string, refs []models.EntityRef) error {
	return s.put(ctx, contextKey(userID), refs, s.contextTTL)
}

// TakeContext returns and clears the user's seeded entity context.
func (s *Store) TakeContext(ctx context.Context, userID string) ([]models.EntityRef, error) {
	refs, err := s.get(ctx, contextKey(userID))
	if err != nil || refs == nil {
		return nil, err
	}
	if err := s.kv.Del(ctx, contextKey(userID)); err != nil {
		return refs, fmt.Errorf("quickaction: clear context: %w", err)
	}
	return refs, nil
}

// ShouldHint counts one more listing for the user and reports whether the
// reply hint should still be shown.
func (s *Store) ShouldHint(ctx context.Context, userID string) (bool, error) {
	n, err := s.kv.Incr(ctx, hintKey(userID), s.hintTTL)
	if err != nil {
		return false, fmt.Errorf("quickaction: hint counter: %w", err)
	}
	return n <= int64(s.hintCap), nil
}

func (s *Store) put(ctx context.Context, key string, refs []models.EntityRef, ttl time.Duration) error {
	data, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("quickaction: encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data), ttl); err != nil {
		return fmt.Errorf("quickaction: store %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]models.EntityRef, error) {
	raw, err := s.kv.Get(ctx, key)
	if kv.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quickaction: load %s: %w", key, err)
	}
	var refs []models.EntityRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		_ = s.kv.Del(ctx, key)
		return nil, nil
	}
	valid := refs[:0]
	for _, r := range refs {
		if r.Kind.Valid() && r.ID != "" {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	return valid, nil
}
