package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/confirm"
	"github.com/zulandar/agenda/internal/dates"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/recurrence"
	"github.com/zulandar/agenda/internal/session"
)

// resolve re-validates a reference that came back from the user against
// the owner. A foreign or vanished id reports not found and sends the user
// back to the menu.
func (a *Assistant) resolve(ctx context.Context, t *turn, ref models.EntityRef) (*calendar.Item, bool, error) {
	it, err := calendar.Resolve(a.db.WithContext(ctx), t.userID, ref)
	if errors.Is(err, calendar.ErrNotFound) {
		t.say(msgNotFound)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return it, true, nil
}

// remove deletes ref and cancels a reminder's pending job.
func (a *Assistant) remove(ctx context.Context, t *turn, ref models.EntityRef) error {
	if err := calendar.Delete(a.db.WithContext(ctx), t.userID, ref); err != nil {
		return err
	}
	if ref.Kind == models.KindReminder {
		job := models.Reminder{ID: ref.ID}.JobID()
		if err := a.sch.Cancel(ctx, job); err != nil {
			t.log.Warn("cancel reminder job failed", zap.String("job_id", job), zap.Error(err))
		}
	}
	return nil
}

// deleteNow deletes a resolved item and reports it.
func (a *Assistant) deleteNow(ctx context.Context, t *turn, ref models.EntityRef, label string) (session.Record, error) {
	err := a.remove(ctx, t, ref)
	if errors.Is(err, calendar.ErrNotFound) {
		t.say(msgNotFound)
		return session.Idle{}, nil
	}
	if err != nil {
		return nil, err
	}
	t.done(fmt.Sprintf("Deleted %q.", label))
	return session.Idle{}, nil
}

// completeNow marks a task done.
func (a *Assistant) completeNow(ctx context.Context, t *turn, id, label string) (session.Record, error) {
	err := calendar.CompleteTask(a.db.WithContext(ctx), t.userID, id, t.now)
	if errors.Is(err, calendar.ErrNotFound) {
		t.say(msgNotFound)
		return session.Idle{}, nil
	}
	if err != nil {
		return nil, err
	}
	t.done(fmt.Sprintf("Marked %q as done.", label))
	return session.Idle{}, nil
}

// moveTo sets a new time on a resolved item. A recurring reminder first
// asks whether the change applies to one occurrence or the series.
func (a *Assistant) moveTo(ctx context.Context, t *turn, it *calendar.Item, at time.Time) (session.Record, error) {
	if err := dates.CheckFuture(at, t.now, a.grace()); err != nil {
		t.say(msgPast)
		return session.Idle{}, nil
	}
	db := a.db.WithContext(ctx)
	label := it.Title

	switch it.Ref.Kind {
	case models.KindEvent:
		ev, err := calendar.RescheduleEvent(db, t.userID, it.Ref.ID, at)
		if err != nil {
			return a.notFoundOr(t, err)
		}
		conflicts, err := calendar.Conflicts(db, t.userID, ev.StartsAt, ev.EndsAt, ev.ID)
		if err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Moved %q to %s.", label, t.local(at).Format(dayTimeLayout))
		if len(conflicts) > 0 {
			msg += fmt.Sprintf("\nHeads up: it overlaps %q.", conflicts[0].Title)
		}
		t.done(msg)

	case models.KindReminder:
		if it.Recurrence != "" && it.Recurrence != models.RecurNone {
			t.say(recurringChoiceText)
			return session.RecurringChoice{ReminderID: it.Ref.ID, Label: label, NewTime: at}, nil
		}
		if err := calendar.SetReminderAnchor(db, t.userID, it.Ref.ID, at); err != nil {
			return a.notFoundOr(t, err)
		}
		if err := a.rearm(ctx, t, it.Ref.ID); err != nil {
			return nil, err
		}
		t.done(fmt.Sprintf("Reminder %q moved to %s.", label, t.local(at).Format(dayTimeLayout)))

	case models.KindTask:
		if err := calendar.SetTaskDue(db, t.userID, it.Ref.ID, at); err != nil {
			return a.notFoundOr(t, err)
		}
		t.done(fmt.Sprintf("Task %q is now due %s.", label, t.local(at).Format(dayTimeLayout)))
	}
	return session.Idle{}, nil
}

// onItemDay places clock on the day it is next due: the next occurrence of
// a recurring reminder, otherwise the item's own day or today, whichever is
// later.
func (a *Assistant) onItemDay(t *turn, it *calendar.Item, clock dates.Clock) time.Time {
	if it.Ref.Kind == models.KindReminder && it.When != nil && it.Recurrence != "" && it.Recurrence != models.RecurNone {
		rem := models.Reminder{RemindAt: *it.When, Recurrence: it.Recurrence}
		if at, err := recurrence.Retime(rem, clock, t.loc, t.now); err == nil {
			return at
		}
	}
	day := t.today()
	if it.When != nil {
		if d := t.local(*it.When); d.After(day) {
			day = d
		}
	}
	return clock.On(day)
}

// splitRecurring applies a chosen scope to a recurring reminder.
func (a *Assistant) splitRecurring(ctx context.Context, t *turn, rec session.RecurringChoice, scope recurrence.Scope) (session.Record, error) {
	res, err := a.splitter.Split(ctx, t.userID, rec.ReminderID, scope, rec.NewTime, t.loc)
	switch {
	case errors.Is(err, calendar.ErrNotFound), errors.Is(err, recurrence.ErrNotRecurring):
		t.say(msgNotFound)
		return session.Idle{}, nil
	case errors.Is(err, dates.ErrInPast):
		t.say(msgPast)
		return session.Idle{}, nil
	case err != nil:
		return nil, err
	}
	at := t.local(res.At)
	when := at.Format(dayTimeLayout)
	switch {
	case scope == recurrence.ThisOccurrence:
		t.done(fmt.Sprintf("Only the next %q moves to %s. The series is unchanged.", rec.Label, when))
	case sameDay(at, t.local(res.Previous)):
		t.done(fmt.Sprintf("Every %q now goes off at %s. Next: %s.", rec.Label, dates.ClockOf(at), when))
	default:
		t.done(fmt.Sprintf("%q now starts on %s, %s.", rec.Label, when, recurrenceLabels[res.Reminder.Recurrence]))
	}
	return session.Idle{}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// rearm reloads a reminder and schedules its next occurrence.
func (a *Assistant) rearm(ctx context.Context, t *turn, id string) error {
	rem, err := calendar.GetReminder(a.db.WithContext(ctx), t.userID, id)
	if err != nil {
		return err
	}
	if _, err := recurrence.Arm(ctx, a.sch, *rem, t.loc, t.now); err != nil {
		return fmt.Errorf("arm reminder: %w", err)
	}
	return nil
}

// execute runs a confirmed pending action.
func (a *Assistant) execute(ctx context.Context, t *turn, p *confirm.Pending) (session.Record, error) {
	ref := models.EntityRef{Kind: p.Kind, ID: p.EntityID}
	switch p.Action {
	case confirm.ActionDelete:
		return a.deleteNow(ctx, t, ref, p.EntityLabel)
	case confirm.ActionComplete:
		return a.completeNow(ctx, t, p.EntityID, p.EntityLabel)
	case confirm.ActionReschedule:
		if p.NewTime == nil {
			t.say(msgLostTrack)
			return session.Idle{}, nil
		}
		it, ok, err := a.resolve(ctx, t, ref)
		if err != nil || !ok {
			return session.Idle{}, err
		}
		return a.moveTo(ctx, t, it, *p.NewTime)
	}
	t.say(msgLostTrack)
	return session.Idle{}, nil
}

// askDelete stores a pending delete for a resolved item and prompts.
func (a *Assistant) askDelete(ctx context.Context, t *turn, it *calendar.Item) error {
	if err := a.confirms.Put(ctx, t.userID, confirm.Pending{
		Action:      confirm.ActionDelete,
		Kind:        it.Ref.Kind,
		EntityID:    it.Ref.ID,
		EntityLabel: it.Title,
	}); err != nil {
		return err
	}
	t.say(deletePrompt(it.Title))
	return nil
}

func (a *Assistant) notFoundOr(t *turn, err error) (session.Record, error) {
	if errors.Is(err, calendar.ErrNotFound) {
		t.say(msgNotFound)
		return session.Idle{}, nil
	}
	return nil, err
}
