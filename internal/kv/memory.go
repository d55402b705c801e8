package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store backed by go-cache. It is used for tests,
// the console transport and single-instance deployments without Redis.
type Memory struct {
	mu sync.Mutex // guards read-modify-write sequences
	c  *cache.Cache
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{c: cache.New(cache.NoExpiration, time.Minute)}
}

func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return cache.NoExpiration
	}
	return ttl
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := m.c.Add(key, value, expiry(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(key, value, expiry(ttl))
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("kv: get %s: wrong type", key)
	}
	return s, nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func (m *Memory) DelIfValue(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.c.Get(key)
	if !ok || v != value {
		return false, nil
	}
	m.c.Delete(key)
	return true, nil
}

func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, exp, ok := m.c.GetWithExpiration(key)
	if !ok {
		m.c.Set(key, "1", expiry(ttl))
		return 1, nil
	}
	s, _ := v.(string)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("kv: incr %s: value is not an integer", key)
	}
	n++
	m.c.Set(key, strconv.FormatInt(n, 10), remaining(exp))
	return n, nil
}

func remaining(exp time.Time) time.Duration {
	if exp.IsZero() {
		return cache.NoExpiration
	}
	d := time.Until(exp)
	if d <= 0 {
		// Expires on the next janitor sweep or read.
		return time.Nanosecond
	}
	return d
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.c.Get(key)
	if !ok {
		return nil
	}
	m.c.Set(key, v, expiry(ttl))
	return nil
}

func (m *Memory) PushBounded(_ context.Context, key, value string, max int, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var list []string
	if v, ok := m.c.Get(key); ok {
		prev, ok := v.([]string)
		if !ok {
			return fmt.Errorf("kv: push %s: wrong type", key)
		}
		list = append(list, prev...)
	}
	list = append(list, value)
	if max > 0 && len(list) > max {
		list = list[len(list)-max:]
	}
	m.c.Set(key, list, expiry(ttl))
	return nil
}

func (m *Memory) Range(_ context.Context, key string) ([]string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, nil
	}
	list, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("kv: range %s: wrong type", key)
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
