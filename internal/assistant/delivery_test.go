package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/recurrence"
)

func TestDeliver_OneShotRetires(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	rem, err := calendar.CreateReminder(h.db, calendar.ReminderOpts{
		UserID: h.userID, Title: "Stretch", RemindAt: testNow,
	})
	if err != nil {
		t.Fatal(err)
	}

	h.a.Deliver(context.Background(), rem.JobID(), recurrence.ReminderPayload(*rem))

	last, ok := h.chat.LastSent()
	if !ok || last.To != testPhone || last.Text != "⏰ Reminder: Stretch" {
		t.Fatalf("last sent = %+v", last)
	}
	got, err := calendar.GetReminder(h.db, h.userID, rem.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active {
		t.Error("one-shot reminder should be retired after delivery")
	}

	// The notification can be acted on by replying to it.
	expectReply(t, h.quote(t, last.MessageID, "delete"), `Delete "Stretch"? (yes/no)`)
}

func TestDeliver_RecurringReschedules(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	anchor := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	rem, err := calendar.CreateReminder(h.db, calendar.ReminderOpts{
		UserID: h.userID, Title: "Standup", RemindAt: anchor, Recurrence: models.RecurDaily,
	})
	if err != nil {
		t.Fatal(err)
	}

	h.a.Deliver(context.Background(), rem.JobID(), recurrence.ReminderPayload(*rem))

	job, ok := h.sch.Get(rem.JobID())
	if !ok {
		t.Fatal("series was not rescheduled")
	}
	want := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	if !job.At.Equal(want) {
		t.Errorf("next at %v, want %v", job.At, want)
	}
	got, _ := calendar.GetReminder(h.db, h.userID, rem.ID)
	if !got.Active {
		t.Error("recurring reminder must stay active")
	}
}

func TestDeliver_SendFailureKeepsOneShot(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	rem, err := calendar.CreateReminder(h.db, calendar.ReminderOpts{
		UserID: h.userID, Title: "Call", RemindAt: testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	h.chat.SetSendError(context.DeadlineExceeded)

	h.a.Deliver(context.Background(), rem.JobID(), recurrence.ReminderPayload(*rem))

	got, _ := calendar.GetReminder(h.db, h.userID, rem.ID)
	if !got.Active {
		t.Error("undelivered reminder should stay active")
	}
}

func TestDeliver_DeletedReminderIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	rem, _ := calendar.CreateReminder(h.db, calendar.ReminderOpts{UserID: h.userID, Title: "Gone", RemindAt: testNow})
	if err := calendar.DeleteReminder(h.db, h.userID, rem.ID); err != nil {
		t.Fatal(err)
	}

	h.a.Deliver(context.Background(), rem.JobID(), recurrence.ReminderPayload(*rem))
	if n := h.chat.SentCount(); n != 0 {
		t.Fatalf("sent %d messages for a deleted reminder", n)
	}
}

func TestReload(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	for _, title := range []string{"One", "Two"} {
		if _, err := calendar.CreateReminder(h.db, calendar.ReminderOpts{
			UserID: h.userID, Title: title, RemindAt: testNow.Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := h.a.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if n != 2 || len(h.sch.Jobs()) != 2 {
		t.Fatalf("armed %d, jobs %d; want 2", n, len(h.sch.Jobs()))
	}
}

func TestSendDigests(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	if _, err := calendar.CreateEvent(h.db, calendar.EventOpts{UserID: h.userID, Title: "Review", StartsAt: at}); err != nil {
		t.Fatal(err)
	}

	if n := h.a.SendDigests(context.Background()); n != 1 {
		t.Fatalf("digests = %d, want 1", n)
	}
	last, _ := h.chat.LastSent()
	if !strings.Contains(last.Text, "Good morning, Ana!") || !strings.Contains(last.Text, "Review") {
		t.Errorf("digest = %q", last.Text)
	}

	// Digest listings accept quick actions.
	expectReply(t, h.quote(t, last.MessageID, "move 1 to 16:00"), `Moved "Review" to Tue 10 Mar 16:00.`)
}

func TestSendDigests_SkipsEmptyDays(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if n := h.a.SendDigests(context.Background()); n != 0 {
		t.Fatalf("digests = %d, want 0", n)
	}
}

func TestNextCronDuration(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want time.Duration
	}{
		{"daily 08:00", "0 8 * * *", 22 * time.Hour},
		{"every minute", "* * * * *", time.Minute},
		{"invalid", "not a cron expr", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextCronDuration(tt.expr, testNow, time.UTC); got != tt.want {
				t.Errorf("nextCronDuration(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestRun_HandlesInboundUntilCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.a.Run(ctx) }()

	h.chat.SimulateInbound(chat.InboundMessage{From: testPhone, Text: "hi", MessageID: "run-1"})

	deadline := time.After(5 * time.Second)
	for h.chat.SentCount() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("no reply before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	last, _ := h.chat.LastSent()
	if last.Text != msgAskName {
		t.Errorf("reply = %q, want %q", last.Text, msgAskName)
	}
}
