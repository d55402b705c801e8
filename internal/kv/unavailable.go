package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by every Unavailable operation.
var ErrUnavailable = errors.New("kv: store unavailable")

// Unavailable is a Store whose every call fails. It stands in for a Redis
// outage in tests of fail-open paths.
type Unavailable struct{}

var _ Store = Unavailable{}

func (Unavailable) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, ErrUnavailable
}
func (Unavailable) Set(context.Context, string, string, time.Duration) error { return ErrUnavailable }
func (Unavailable) Get(context.Context, string) (string, error)              { return "", ErrUnavailable }
func (Unavailable) Del(context.Context, ...string) error                     { return ErrUnavailable }
func (Unavailable) DelIfValue(context.Context, string, string) (bool, error) {
	return false, ErrUnavailable
}
func (Unavailable) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, ErrUnavailable
}
func (Unavailable) Expire(context.Context, string, time.Duration) error { return ErrUnavailable }
func (Unavailable) PushBounded(context.Context, string, string, int, time.Duration) error {
	return ErrUnavailable
}
func (Unavailable) Range(context.Context, string) ([]string, error) { return nil, ErrUnavailable }
func (Unavailable) Ping(context.Context) error                      { return ErrUnavailable }
func (Unavailable) Close() error                                    { return nil }
