package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/db"
	"github.com/zulandar/agenda/internal/kv"
)

const phone = "+5511999990000"

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestGate(t *testing.T) (*Gate, *testClock, *kv.Memory) {
	t.Helper()
	gdb, err := db.OpenTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	mem := kv.NewMemory()
	clock := &testClock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	g, err := NewGate(GateOpts{
		DB:       gdb,
		KV:       mem,
		Timezone: "America/Sao_Paulo",
		HashCost: bcrypt.MinCost,
		Now:      clock.now,
	})
	if err != nil {
		t.Fatal(err)
	}
	return g, clock, mem
}

func step(t *testing.T, g *Gate, text string, want Outcome) Result {
	t.Helper()
	res, err := g.Check(context.Background(), phone, text)
	if err != nil {
		t.Fatalf("Check(%q): %v", text, err)
	}
	if res.Outcome != want {
		t.Fatalf("Check(%q) = %v, want %v", text, res.Outcome, want)
	}
	return res
}

func register(t *testing.T, g *Gate) string {
	t.Helper()
	step(t, g, "hi", AskName)
	step(t, g, "Ana", AskNewPIN)
	res := step(t, g, "1234", Registered)
	return res.UserID
}

func TestNewGate_RequiresDeps(t *testing.T) {
	if _, err := NewGate(GateOpts{KV: kv.NewMemory()}); err == nil {
		t.Error("expected error without db")
	}
	gdb, _ := db.OpenTest()
	if _, err := NewGate(GateOpts{DB: gdb}); err == nil {
		t.Error("expected error without kv")
	}
}

func TestRegistration(t *testing.T) {
	g, _, _ := newTestGate(t)
	step(t, g, "hello", AskName)
	step(t, g, "   ", InvalidName)
	step(t, g, "Ana Souza", AskNewPIN)
	step(t, g, "12ab", InvalidPIN)
	step(t, g, "12", InvalidPIN)
	res := step(t, g, "4321", Registered)
	if res.Name != "Ana Souza" || res.UserID == "" {
		t.Errorf("Registered = %+v", res)
	}

	user, err := calendar.UserByPhone(g.db, phone)
	if err != nil {
		t.Fatal(err)
	}
	if user.Timezone != "America/Sao_Paulo" {
		t.Errorf("Timezone = %q", user.Timezone)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte("4321")) != nil {
		t.Error("stored hash does not match pin")
	}

	pass := step(t, g, "what's on today?", Pass)
	if pass.UserID != res.UserID {
		t.Errorf("Pass UserID = %q, want %q", pass.UserID, res.UserID)
	}
}

func TestLogin(t *testing.T) {
	g, _, _ := newTestGate(t)
	userID := register(t, g)
	if err := g.Logout(context.Background(), phone); err != nil {
		t.Fatal(err)
	}

	step(t, g, "hi again", AskPIN)
	wrong := step(t, g, "9999", WrongPIN)
	if wrong.Remaining != 2 || !errors.Is(wrong.Err, ErrWrongPIN) {
		t.Errorf("WrongPIN = %+v", wrong)
	}
	res := step(t, g, "1234", LoggedIn)
	if res.UserID != userID {
		t.Errorf("UserID = %q, want %q", res.UserID, userID)
	}
	step(t, g, "menu", Pass)
}

func TestLockout(t *testing.T) {
	g, clock, _ := newTestGate(t)
	register(t, g)
	_ = g.Logout(context.Background(), phone)

	step(t, g, "hi", AskPIN)
	step(t, g, "0000", WrongPIN)
	step(t, g, "0000", WrongPIN)
	res := step(t, g, "0000", LockedOut)
	if !errors.Is(res.Err, ErrLockedOut) {
		t.Errorf("Err = %v", res.Err)
	}
	if want := clock.t.Add(DefaultLockout); !res.Until.Equal(want) {
		t.Errorf("Until = %v, want %v", res.Until, want)
	}

	// The right PIN is refused while locked, and consumes nothing.
	clock.t = clock.t.Add(5 * time.Minute)
	step(t, g, "1234", LockedOut)
	st, _ := g.State(context.Background(), phone)
	if st.Authenticated || st.FailedAttempts != 0 || st.Step != StepNone {
		t.Errorf("locked state = %+v", st)
	}

	clock.t = clock.t.Add(DefaultLockout)
	step(t, g, "hello", AskPIN)
	step(t, g, "1234", LoggedIn)
}

func TestCorruptStateRestarts(t *testing.T) {
	g, _, mem := newTestGate(t)
	_ = mem.Set(context.Background(), stateKey(phone), "{broken", time.Hour)
	step(t, g, "hi", AskName)
}

func TestStoreFailureIsAnError(t *testing.T) {
	gdb, _ := db.OpenTest()
	g, err := NewGate(GateOpts{DB: gdb, KV: kv.Unavailable{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Check(context.Background(), phone, "hi"); err == nil {
		t.Error("expected error from unavailable store")
	}
}
