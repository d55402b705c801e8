//go:build integration

package kv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestRedis(t *testing.T) *Redis {
	t.Helper()
	url := os.Getenv("AGENDA_TEST_REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:6379/15"
	}
	r, err := NewRedis(context.Background(), url)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openTestRedis(t)
	prefix := "test:" + uuid.NewString() + ":"

	ok, err := r.SetNX(ctx, prefix+"lock", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("SetNX = %v, %v", ok, err)
	}
	ok, _ = r.SetNX(ctx, prefix+"lock", "2", time.Minute)
	if ok {
		t.Error("second SetNX should fail")
	}
	if _, err := r.Get(ctx, prefix+"missing"); !IsNotFound(err) {
		t.Errorf("Get missing err = %v", err)
	}

	n, _ := r.Incr(ctx, prefix+"n", time.Minute)
	n, _ = r.Incr(ctx, prefix+"n", time.Minute)
	if n != 2 {
		t.Errorf("Incr = %d, want 2", n)
	}

	for _, v := range []string{"a", "b", "c"} {
		r.PushBounded(ctx, prefix+"h", v, 2, time.Minute)
	}
	got, _ := r.Range(ctx, prefix+"h")
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Range = %v", got)
	}

	r.Del(ctx, prefix+"lock", prefix+"n", prefix+"h")
}
