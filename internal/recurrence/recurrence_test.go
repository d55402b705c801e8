package recurrence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/dates"
	"github.com/zulandar/agenda/internal/db"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/scheduler"
)

var brt = time.FixedZone("BRT", -3*3600)

// Wednesday 4 March 2026, 10:00 local.
var now = time.Date(2026, 3, 4, 10, 0, 0, 0, brt)

func TestExpr(t *testing.T) {
	anchor := time.Date(2026, 3, 2, 9, 30, 0, 0, brt) // Monday
	tests := []struct {
		r    models.Recurrence
		want string
	}{
		{models.RecurDaily, "30 9 * * *"},
		{models.RecurWeekdays, "30 9 * * 1-5"},
		{models.RecurWeekly, "30 9 * * 1"},
		{models.RecurMonthly, "30 9 2 * *"},
		{models.RecurYearly, "30 9 2 3 *"},
	}
	for _, tt := range tests {
		got, err := Expr(tt.r, anchor)
		if err != nil || got != tt.want {
			t.Errorf("Expr(%s) = %q, %v; want %q", tt.r, got, err, tt.want)
		}
	}
	if _, err := Expr(models.RecurNone, anchor); err == nil {
		t.Error("Expr(none) should fail")
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		r      models.Recurrence
		anchor time.Time
		want   time.Time
	}{
		{"one-shot returns anchor", models.RecurNone,
			time.Date(2026, 3, 1, 9, 0, 0, 0, brt), time.Date(2026, 3, 1, 9, 0, 0, 0, brt)},
		{"future anchor is next", models.RecurWeekly,
			time.Date(2026, 3, 10, 9, 0, 0, 0, brt), time.Date(2026, 3, 10, 9, 0, 0, 0, brt)},
		{"daily rolls to tomorrow", models.RecurDaily,
			time.Date(2026, 1, 1, 9, 0, 0, 0, brt), time.Date(2026, 3, 5, 9, 0, 0, 0, brt)},
		{"daily later today", models.RecurDaily,
			time.Date(2026, 1, 1, 18, 0, 0, 0, brt), time.Date(2026, 3, 4, 18, 0, 0, 0, brt)},
		{"weekly past anchor", models.RecurWeekly,
			time.Date(2026, 2, 2, 9, 0, 0, 0, brt), time.Date(2026, 3, 9, 9, 0, 0, 0, brt)},
		{"weekdays skip weekend", models.RecurWeekdays,
			time.Date(2026, 3, 6, 9, 0, 0, 0, brt), time.Date(2026, 3, 6, 9, 0, 0, 0, brt)},
		{"weekdays future saturday anchor", models.RecurWeekdays,
			time.Date(2026, 3, 7, 9, 0, 0, 0, brt), time.Date(2026, 3, 9, 9, 0, 0, 0, brt)},
		{"monthly", models.RecurMonthly,
			time.Date(2025, 11, 2, 8, 0, 0, 0, brt), time.Date(2026, 4, 2, 8, 0, 0, 0, brt)},
		{"yearly", models.RecurYearly,
			time.Date(2020, 12, 25, 8, 0, 0, 0, brt), time.Date(2026, 12, 25, 8, 0, 0, 0, brt)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.r, tt.anchor, now)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNext_NeverInPast(t *testing.T) {
	anchor := time.Date(2025, 6, 15, 7, 45, 0, 0, brt)
	for _, r := range []models.Recurrence{models.RecurDaily, models.RecurWeekdays, models.RecurWeekly, models.RecurMonthly, models.RecurYearly} {
		got, err := Next(r, anchor, now)
		if err != nil {
			t.Fatalf("%s: %v", r, err)
		}
		if got.Before(now) {
			t.Errorf("%s: Next = %v is before now", r, got)
		}
		if got.Hour() != 7 || got.Minute() != 45 {
			t.Errorf("%s: Next = %v lost the wall clock", r, got)
		}
	}
}

func TestAfter(t *testing.T) {
	anchor := time.Date(2026, 3, 4, 9, 0, 0, 0, brt)
	got, err := After(models.RecurDaily, anchor, anchor)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 3, 5, 9, 0, 0, 0, brt); !got.Equal(want) {
		t.Errorf("After = %v, want %v", got, want)
	}
}

type splitFixture struct {
	splitter *Splitter
	sched    *scheduler.Recorder
	userID   string
	series   *models.Reminder
}

func newSplitFixture(t *testing.T) *splitFixture {
	t.Helper()
	gdb, err := db.OpenTest()
	if err != nil {
		t.Fatal(err)
	}
	u, err := calendar.CreateUser(gdb, "+1", "Ana", "h", "")
	if err != nil {
		t.Fatal(err)
	}
	// Weekly on Mondays at 09:00, anchored in the past.
	series, err := calendar.CreateReminder(gdb, calendar.ReminderOpts{
		UserID:     u.ID,
		Title:      "Standup",
		RemindAt:   time.Date(2026, 2, 2, 9, 0, 0, 0, brt),
		Recurrence: models.RecurWeekly,
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := scheduler.NewRecorder()
	s, err := NewSplitter(SplitterOpts{DB: gdb, Scheduler: rec, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}
	return &splitFixture{splitter: s, sched: rec, userID: u.ID, series: series}
}

func TestRetime_RollsForwardFromPastAnchor(t *testing.T) {
	f := newSplitFixture(t)

	got, err := Retime(*f.series, dates.Clock{Hour: 15}, brt, now)
	if err != nil {
		t.Fatal(err)
	}
	// Anchor is Mon 2 Feb; from Wed 4 Mar the next Monday is 9 Mar.
	if want := time.Date(2026, 3, 9, 15, 0, 0, 0, brt); !got.Equal(want) {
		t.Errorf("Retime = %v, want %v", got, want)
	}
}

func TestSplit_ThisOccurrence(t *testing.T) {
	f := newSplitFixture(t)
	ctx := context.Background()

	want := time.Date(2026, 3, 9, 15, 0, 0, 0, brt)
	res, err := f.splitter.Split(ctx, f.userID, f.series.ID, ThisOccurrence, want, brt)
	if err != nil {
		t.Fatal(err)
	}
	if !res.At.Equal(want) {
		t.Errorf("At = %v, want %v", res.At, want)
	}
	if prev := time.Date(2026, 3, 9, 9, 0, 0, 0, brt); !res.Previous.Equal(prev) {
		t.Errorf("Previous = %v, want %v", res.Previous, prev)
	}
	if res.Reminder.Recurring() || res.Reminder.ParentID != f.series.ID {
		t.Errorf("occurrence = %+v", res.Reminder)
	}
	if job, ok := f.sched.Get(res.Reminder.JobID()); !ok || !job.At.Equal(want) {
		t.Errorf("occurrence job = %+v, %v", job, ok)
	}

	orig, _ := calendar.GetReminder(f.splitter.db, f.userID, f.series.ID)
	if !orig.RemindAt.Equal(f.series.RemindAt) || orig.Recurrence != models.RecurWeekly {
		t.Errorf("series changed: %+v", orig)
	}
	if len(f.sched.Cancelled) != 0 {
		t.Errorf("series job cancelled: %v", f.sched.Cancelled)
	}
}

func TestSplit_ThisOccurrenceOnAnotherDay(t *testing.T) {
	f := newSplitFixture(t)
	ctx := context.Background()

	// Friday, not one of the series' Mondays.
	want := time.Date(2026, 3, 6, 18, 0, 0, 0, brt)
	res, err := f.splitter.Split(ctx, f.userID, f.series.ID, ThisOccurrence, want, brt)
	if err != nil {
		t.Fatal(err)
	}
	if !res.At.Equal(want) || !res.Reminder.RemindAt.Equal(want) {
		t.Errorf("occurrence at %v (stored %v), want %v", res.At, res.Reminder.RemindAt, want)
	}
}

func TestSplit_AllOccurrences(t *testing.T) {
	f := newSplitFixture(t)
	ctx := context.Background()

	want := time.Date(2026, 3, 9, 15, 30, 0, 0, brt)
	res, err := f.splitter.Split(ctx, f.userID, f.series.ID, AllOccurrences, want, brt)
	if err != nil {
		t.Fatal(err)
	}
	if !res.At.Equal(want) {
		t.Errorf("At = %v, want %v", res.At, want)
	}
	orig, _ := calendar.GetReminder(f.splitter.db, f.userID, f.series.ID)
	if !orig.RemindAt.Equal(want) {
		t.Errorf("anchor = %v, want %v", orig.RemindAt, want)
	}
	if len(f.sched.Cancelled) != 1 || f.sched.Cancelled[0] != f.series.JobID() {
		t.Errorf("Cancelled = %v", f.sched.Cancelled)
	}
	if job, ok := f.sched.Get(f.series.JobID()); !ok || !job.At.Equal(want) {
		t.Errorf("series job = %+v, %v", job, ok)
	}
}

func TestSplit_AllOccurrencesMovesWeekday(t *testing.T) {
	f := newSplitFixture(t)
	ctx := context.Background()

	fri := time.Date(2026, 3, 6, 18, 0, 0, 0, brt)
	res, err := f.splitter.Split(ctx, f.userID, f.series.ID, AllOccurrences, fri, brt)
	if err != nil {
		t.Fatal(err)
	}
	if !res.At.Equal(fri) {
		t.Errorf("At = %v, want %v", res.At, fri)
	}
	orig, _ := calendar.GetReminder(f.splitter.db, f.userID, f.series.ID)
	next, err := After(orig.Recurrence, orig.RemindAt.In(brt), fri)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 3, 13, 18, 0, 0, 0, brt); !next.Equal(want) {
		t.Errorf("following occurrence = %v, want %v", next, want)
	}
}

func TestSplit_Errors(t *testing.T) {
	f := newSplitFixture(t)
	ctx := context.Background()
	later := now.Add(time.Hour)

	if _, err := f.splitter.Split(ctx, "intruder", f.series.ID, AllOccurrences, later, brt); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("foreign split err = %v", err)
	}
	one, _ := calendar.CreateReminder(f.splitter.db, calendar.ReminderOpts{UserID: f.userID, Title: "x", RemindAt: later})
	if _, err := f.splitter.Split(ctx, f.userID, one.ID, ThisOccurrence, later, brt); !errors.Is(err, ErrNotRecurring) {
		t.Errorf("one-shot split err = %v", err)
	}
	if _, err := f.splitter.Split(ctx, f.userID, f.series.ID, ThisOccurrence, now.Add(-time.Hour), brt); !errors.Is(err, dates.ErrInPast) {
		t.Errorf("past split err = %v", err)
	}
	if n := len(f.sched.Jobs()); n != 0 {
		t.Errorf("jobs scheduled by failed splits = %d", n)
	}
}

func TestArm(t *testing.T) {
	rec := scheduler.NewRecorder()
	r := models.Reminder{ID: "r1", UserID: "u1", RemindAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), Recurrence: models.RecurDaily}
	at, err := Arm(context.Background(), rec, r, brt, now)
	if err != nil {
		t.Fatal(err)
	}
	// 09:00 UTC is 06:00 BRT; next one after Wednesday 10:00 BRT is Thursday.
	if want := time.Date(2026, 3, 5, 6, 0, 0, 0, brt); !at.Equal(want) {
		t.Errorf("Arm = %v, want %v", at, want)
	}
	job, ok := rec.Get("reminder:r1")
	if !ok || job.Payload.EntityID != "r1" || job.Payload.Kind != "reminder" {
		t.Errorf("job = %+v, %v", job, ok)
	}
}
