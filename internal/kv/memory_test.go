package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemory_SetGetDel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "a"); !IsNotFound(err) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := m.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatal(err)
	}
	v, err := m.Get(ctx, "a")
	if err != nil || v != "1" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if err := m.Del(ctx, "a", "missing"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "a"); !IsNotFound(err) {
		t.Errorf("after Del: err = %v", err)
	}
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.SetNX(ctx, "lock", "x", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	ok, err = m.SetNX(ctx, "lock", "y", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX = %v, %v; want false", ok, err)
	}
	v, _ := m.Get(ctx, "lock")
	if v != "x" {
		t.Errorf("value = %q, want x", v)
	}
}

func TestMemory_SetNX_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.SetNX(ctx, "race", "1", time.Minute); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
}

func TestMemory_DelIfValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "lock", "owner-a", time.Minute)
	if ok, _ := m.DelIfValue(ctx, "lock", "owner-b"); ok {
		t.Error("DelIfValue with wrong value should not delete")
	}
	if ok, _ := m.DelIfValue(ctx, "lock", "owner-a"); !ok {
		t.Error("DelIfValue with matching value should delete")
	}
	if _, err := m.Get(ctx, "lock"); !IsNotFound(err) {
		t.Errorf("lock still present: %v", err)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "short", "v", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if _, err := m.Get(ctx, "short"); !IsNotFound(err) {
		t.Errorf("expired key still readable: %v", err)
	}
	ok, _ := m.SetNX(ctx, "short", "again", time.Minute)
	if !ok {
		t.Error("SetNX should succeed after expiry")
	}
}

func TestMemory_Incr(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for want := int64(1); want <= 3; want++ {
		n, err := m.Incr(ctx, "c", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Errorf("Incr = %d, want %d", n, want)
		}
	}

	m.Set(ctx, "bad", "abc", time.Minute)
	if _, err := m.Incr(ctx, "bad", time.Minute); err == nil {
		t.Error("expected error incrementing non-integer")
	}
}

func TestMemory_IncrKeepsOriginalTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Incr(ctx, "c", 30*time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	m.Incr(ctx, "c", time.Hour)
	time.Sleep(40 * time.Millisecond)
	if _, err := m.Get(ctx, "c"); !IsNotFound(err) {
		t.Errorf("counter should expire on its first TTL, err = %v", err)
	}
}

func TestMemory_PushBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, v := range []string{"a", "b", "c", "d"} {
		if err := m.PushBounded(ctx, "h", v, 3, time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.Range(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("Range = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Range[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	empty, err := m.Range(ctx, "none")
	if err != nil || len(empty) != 0 {
		t.Errorf("Range missing = %v, %v", empty, err)
	}
}

func TestMemory_Expire(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "k", "v", time.Hour)
	m.Expire(ctx, "k", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if _, err := m.Get(ctx, "k"); !IsNotFound(err) {
		t.Errorf("Expire did not shorten TTL: %v", err)
	}
	if err := m.Expire(ctx, "absent", time.Minute); err != nil {
		t.Errorf("Expire absent: %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	var s Store = Unavailable{}
	if _, err := s.SetNX(ctx, "k", "v", time.Second); err != ErrUnavailable {
		t.Errorf("SetNX err = %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != ErrUnavailable || IsNotFound(err) {
		t.Errorf("Get err = %v", err)
	}
}
