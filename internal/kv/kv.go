// Package kv defines the ephemeral key/value store that backs idempotency
// markers, sessions, confirmations and reply mappings. Every record carries a
// TTL; nothing here is durable.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: not found")

// Store is the minimal set of atomic operations the bot relies on.
type Store interface {
	// SetNX stores value under key only if the key does not exist.
	// It reports whether the value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfValue deletes key only while it still holds value, reporting
	// whether it did.
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	// Incr increments the integer at key. The TTL is applied when the
	// increment creates the key.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// PushBounded appends value to the list at key, keeps only the newest
	// max entries and refreshes the TTL.
	PushBounded(ctx context.Context, key, value string, max int, ttl time.Duration) error
	// Range returns the whole list at key, oldest first.
	Range(ctx context.Context, key string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
