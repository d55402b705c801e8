package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type firedJobs struct {
	mu   sync.Mutex
	got  []string
	done chan struct{}
}

func (f *firedJobs) handle(_ context.Context, jobID string, _ Payload) {
	f.mu.Lock()
	f.got = append(f.got, jobID)
	f.mu.Unlock()
	select {
	case f.done <- struct{}{}:
	default:
	}
}

func (f *firedJobs) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

func newTestGocron(t *testing.T) (*Gocron, *firedJobs) {
	t.Helper()
	f := &firedJobs{done: make(chan struct{}, 8)}
	g, err := NewGocron(GocronOpts{Handler: f.handle})
	if err != nil {
		t.Fatalf("NewGocron: %v", err)
	}
	g.Start()
	t.Cleanup(func() { g.Stop() })
	return g, f
}

func waitFired(t *testing.T, f *firedJobs) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestNewGocron_RequiresHandler(t *testing.T) {
	if _, err := NewGocron(GocronOpts{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGocron_FiresOnce(t *testing.T) {
	g, f := newTestGocron(t)
	ctx := context.Background()

	if err := g.Schedule(ctx, "reminder:1", Payload{Kind: "reminder", UserID: "u1", EntityID: "1"}, time.Now().Add(200*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if !g.Pending("reminder:1") {
		t.Error("job should be pending")
	}
	waitFired(t, f)
	if got := f.list(); len(got) != 1 || got[0] != "reminder:1" {
		t.Errorf("fired = %v", got)
	}
	if g.Pending("reminder:1") {
		t.Error("fired job still pending")
	}
}

func TestGocron_PastRunsImmediately(t *testing.T) {
	g, f := newTestGocron(t)
	g.Schedule(context.Background(), "reminder:late", Payload{Kind: "reminder"}, time.Now().Add(-time.Hour))
	waitFired(t, f)
}

func TestGocron_Cancel(t *testing.T) {
	g, f := newTestGocron(t)
	ctx := context.Background()

	g.Schedule(ctx, "reminder:2", Payload{Kind: "reminder"}, time.Now().Add(300*time.Millisecond))
	if err := g.Cancel(ctx, "reminder:2"); err != nil {
		t.Fatal(err)
	}
	if err := g.Cancel(ctx, "never-scheduled"); err != nil {
		t.Errorf("Cancel unknown: %v", err)
	}
	time.Sleep(600 * time.Millisecond)
	if got := f.list(); len(got) != 0 {
		t.Errorf("cancelled job fired: %v", got)
	}
}

func TestGocron_RescheduleReplaces(t *testing.T) {
	g, f := newTestGocron(t)
	ctx := context.Background()

	g.Schedule(ctx, "reminder:3", Payload{Kind: "reminder"}, time.Now().Add(time.Hour))
	g.Schedule(ctx, "reminder:3", Payload{Kind: "reminder"}, time.Now().Add(100*time.Millisecond))
	waitFired(t, f)
	time.Sleep(100 * time.Millisecond)
	if got := f.list(); len(got) != 1 {
		t.Errorf("fired = %v, want exactly one", got)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	at := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	r.Schedule(ctx, "b", Payload{EntityID: "b"}, at)
	r.Schedule(ctx, "a", Payload{EntityID: "a"}, at)
	r.Cancel(ctx, "b")

	jobs := r.Jobs()
	if len(jobs) != 1 || jobs[0].ID != "a" {
		t.Errorf("Jobs = %+v", jobs)
	}
	if _, ok := r.Get("b"); ok {
		t.Error("cancelled job still recorded")
	}
	if len(r.Cancelled) != 1 || r.Cancelled[0] != "b" {
		t.Errorf("Cancelled = %v", r.Cancelled)
	}
}
