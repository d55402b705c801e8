package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/confirm"
	"github.com/zulandar/agenda/internal/dates"
	"github.com/zulandar/agenda/internal/fuzzy"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/recurrence"
	"github.com/zulandar/agenda/internal/session"
)

// stateHandler handles one message in a wizard state and returns the state
// to store next. Handlers re-prompt by returning the record they were given
// and fail soft to the menu when their context is unusable.
type stateHandler func(a *Assistant, ctx context.Context, t *turn, s *session.Session) (session.Record, error)

// machine maps every session state to its handler.
var machine = map[session.State]stateHandler{
	session.StateIdle: (*Assistant).stateIdle,

	session.StateEventTitle:    (*Assistant).stateEventTitle,
	session.StateEventDate:     (*Assistant).stateEventDate,
	session.StateEventTime:     (*Assistant).stateEventTime,
	session.StateEventConflict: (*Assistant).stateEventConflict,

	session.StateReminderTitle:      (*Assistant).stateReminderTitle,
	session.StateReminderDateTime:   (*Assistant).stateReminderDateTime,
	session.StateReminderRecurrence: (*Assistant).stateReminderRecurrence,
	session.StateReminderConfirm:    (*Assistant).stateReminderConfirm,

	session.StateTaskTitle: (*Assistant).stateTaskTitle,
	session.StateTaskDue:   (*Assistant).stateTaskDue,

	session.StateAgendaRange: (*Assistant).stateAgendaRange,
	session.StateSearchQuery: (*Assistant).stateSearchQuery,

	session.StateSelectEntity: (*Assistant).stateSelectEntity,
	session.StateEditField:    (*Assistant).stateEditField,
	session.StateEditValue:    (*Assistant).stateEditValue,

	session.StateDeleteConfirm:     (*Assistant).stateDeleteConfirm,
	session.StateBulkDeleteConfirm: (*Assistant).stateBulkDeleteConfirm,

	session.StateRecurringChoice: (*Assistant).stateRecurringChoice,
}

// maxCandidates bounds pinned selection lists.
const maxCandidates = 20

func (a *Assistant) runState(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	h, ok := machine[s.State]
	if !ok {
		return lost(t)
	}
	return h(a, ctx, t, s)
}

// lost sends the user back to the menu when a state's context is missing.
func lost(t *turn) (session.Record, error) {
	t.say(msgLostTrack, "", menuText)
	return session.Idle{}, nil
}

// number parses a bare menu number such as "2", "2." or "2)".
func number(text string) (int, bool) {
	s := strings.TrimRight(strings.TrimSpace(text), ".)")
	if s == "" || len(s) > 3 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// oneOf reports whether the normalized text is one of words.
func oneOf(text string, words ...string) bool {
	t := fuzzy.Normalize(text)
	for _, w := range words {
		if t == w {
			return true
		}
	}
	return false
}

// localNow is the current instant in the user's zone, the reference for
// parsing relative dates.
func (t *turn) localNow() time.Time {
	return t.now.In(t.loc)
}

// --- idle and menu ---

func (a *Assistant) stateIdle(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	if n, ok := number(t.text); ok {
		return a.menuChoice(ctx, t, n)
	}
	return a.fallback(ctx, t)
}

func (a *Assistant) menuChoice(ctx context.Context, t *turn, n int) (session.Record, error) {
	switch n {
	case 1:
		t.say(msgAskEventTitle)
		return session.EventTitle{}, nil
	case 2:
		t.say(msgAskRemTitle)
		return session.ReminderTitle{}, nil
	case 3:
		t.say(msgAskTaskTitle)
		return session.TaskTitle{}, nil
	case 4:
		t.say(agendaRangeText)
		return session.AgendaRange{}, nil
	case 5:
		t.say(msgAskQuery)
		return session.SearchQuery{}, nil
	case 6:
		return a.pick(ctx, t, session.PurposeEdit, nil)
	case 7:
		return a.pick(ctx, t, session.PurposeDelete, nil)
	case 8:
		return a.pick(ctx, t, session.PurposeComplete, nil, models.KindTask)
	}
	t.say(outOfRange(menuSize), "", menuText)
	return session.Idle{}, nil
}

// pick pins the user's upcoming items as a numbered selection.
func (a *Assistant) pick(ctx context.Context, t *turn, purpose session.Purpose, newTime *time.Time, kinds ...models.EntityKind) (session.Record, error) {
	items, err := calendar.Upcoming(a.db.WithContext(ctx), t.userID, t.now, kinds...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		t.say(fmt.Sprintf("You have nothing to %s.", purposeVerb(purpose)))
		return session.Idle{}, nil
	}
	return a.pin(t, purpose, items, newTime), nil
}

// pin lists items for a numeric choice and stores them as candidates.
func (a *Assistant) pin(t *turn, purpose session.Purpose, items []calendar.Item, newTime *time.Time) session.SelectEntity {
	if len(items) > maxCandidates {
		items = items[:maxCandidates]
	}
	cands := candidatesOf(items, t.loc)
	header := fmt.Sprintf("Which one do you want to %s? Reply with the number.", purposeVerb(purpose))
	if purpose == session.PurposeDelete && len(cands) > 1 {
		header = "Which one do you want to delete? Reply with the number, or \"all\"."
	}
	t.list(enumerateCandidates(header, cands), candidateRefs(cands))
	return session.SelectEntity{Purpose: purpose, Candidates: cands, NewTime: newTime}
}

// --- event wizard ---

func (a *Assistant) stateEventTitle(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	if t.text == "" {
		t.say(msgAskEventTitle)
		return session.EventTitle{}, nil
	}
	t.say(msgAskEventDate)
	return session.EventDate{Title: t.text}, nil
}

func (a *Assistant) stateEventDate(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.EventDate](s)
	if !ok {
		return lost(t)
	}
	day, err := dates.ParseDate(t.text, t.localNow())
	if err != nil {
		t.say(msgBadDate)
		return rec, nil
	}
	if day.Before(t.today()) {
		t.say(msgPastDay)
		return rec, nil
	}
	t.say(msgAskEventTime)
	return session.EventTime{Title: rec.Title, Date: day.Format(dateOnlyLayout)}, nil
}

func (a *Assistant) stateEventTime(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.EventTime](s)
	if !ok {
		return lost(t)
	}
	day, err := time.ParseInLocation(dateOnlyLayout, rec.Date, t.loc)
	if err != nil {
		return lost(t)
	}
	clock, err := dates.ParseClock(t.text)
	if err != nil {
		t.say(msgBadTime)
		return rec, nil
	}
	start := clock.On(day)
	if err := dates.CheckFuture(start, t.now, a.grace()); err != nil {
		t.say(msgPast)
		return rec, nil
	}
	return a.commitEvent(ctx, t, rec.Title, start, start.Add(models.DefaultEventDuration), true)
}

func (a *Assistant) stateEventConflict(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.EventConflict](s)
	if !ok {
		return lost(t)
	}
	switch confirm.Match(t.text) {
	case confirm.Yes:
		return a.commitEvent(ctx, t, rec.Title, rec.StartsAt, rec.EndsAt, false)
	case confirm.No:
		t.say("Ok, the event was discarded.")
		return session.Idle{}, nil
	}
	t.say(msgYesNo)
	return rec, nil
}

// commitEvent creates the event, first routing overlaps to a confirmation
// when check is set.
func (a *Assistant) commitEvent(ctx context.Context, t *turn, title string, start, end time.Time, check bool) (session.Record, error) {
	db := a.db.WithContext(ctx)
	if check {
		conflicts, err := calendar.Conflicts(db, t.userID, start, end, "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			titles := make([]string, len(conflicts))
			lines := []string{"That overlaps with:"}
			for i, c := range conflicts {
				titles[i] = c.Title
				lines = append(lines, fmt.Sprintf("• %s (%s-%s)", c.Title,
					t.local(c.StartsAt).Format(clockLayout), t.local(c.EndsAt).Format(clockLayout)))
			}
			lines = append(lines, "Create it anyway? (yes/no)")
			t.say(lines...)
			return session.EventConflict{Title: title, StartsAt: start, EndsAt: end, Conflicts: titles}, nil
		}
	}
	ev, err := calendar.CreateEvent(db, calendar.EventOpts{UserID: t.userID, Title: title, StartsAt: start, EndsAt: end})
	if err != nil {
		return nil, err
	}
	t.done(fmt.Sprintf("Event %q scheduled for %s.", ev.Title, t.local(ev.StartsAt).Format(dayTimeLayout)))
	return session.Idle{}, nil
}

// --- reminder wizard ---

func (a *Assistant) stateReminderTitle(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	if t.text == "" {
		t.say(msgAskRemTitle)
		return session.ReminderTitle{}, nil
	}
	t.say(msgAskRemWhen)
	return session.ReminderDateTime{Title: t.text}, nil
}

func (a *Assistant) stateReminderDateTime(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.ReminderDateTime](s)
	if !ok {
		return lost(t)
	}
	at, err := dates.ParseDateTime(t.text, t.localNow())
	switch {
	case errors.Is(err, dates.ErrNoTime):
		t.say(msgAskRemTime)
		return rec, nil
	case err != nil:
		t.say(msgBadDateTime)
		return rec, nil
	}
	if err := dates.CheckFuture(at, t.now, a.grace()); err != nil {
		t.say(msgPast)
		return rec, nil
	}
	t.say(recurrenceText)
	return session.ReminderRecurrence{Title: rec.Title, RemindAt: at}, nil
}

func (a *Assistant) stateReminderRecurrence(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.ReminderRecurrence](s)
	if !ok {
		return lost(t)
	}
	r, ok := parseRecurrence(t.text)
	if !ok {
		t.say(outOfRange(len(models.Recurrences)), "", recurrenceText)
		return rec, nil
	}
	next := session.ReminderConfirm{Title: rec.Title, RemindAt: rec.RemindAt, Recurrence: r}
	t.say(fmt.Sprintf("Remind you about %q on %s, %s? (yes/no)",
		rec.Title, t.local(rec.RemindAt).Format(dayTimeLayout), recurrenceLabels[r]))
	return next, nil
}

// parseRecurrence reads a recurrence menu number or name.
func parseRecurrence(text string) (models.Recurrence, bool) {
	if n, ok := number(text); ok {
		if n < 1 || n > len(models.Recurrences) {
			return "", false
		}
		return models.Recurrences[n-1], true
	}
	switch fuzzy.Normalize(text) {
	case "no", "none", "once", "never", "nao", "uma vez", "nunca":
		return models.RecurNone, true
	case "daily", "every day", "diario", "diariamente", "todo dia", "todos os dias":
		return models.RecurDaily, true
	case "weekdays", "every weekday", "dias uteis", "dia util":
		return models.RecurWeekdays, true
	case "weekly", "every week", "semanal", "semanalmente", "toda semana":
		return models.RecurWeekly, true
	case "monthly", "every month", "mensal", "mensalmente", "todo mes":
		return models.RecurMonthly, true
	case "yearly", "annually", "every year", "anual", "anualmente", "todo ano":
		return models.RecurYearly, true
	}
	r := models.Recurrence(fuzzy.Normalize(text))
	return r, r.Valid()
}

func (a *Assistant) stateReminderConfirm(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.ReminderConfirm](s)
	if !ok {
		return lost(t)
	}
	switch confirm.Match(t.text) {
	case confirm.Yes:
		return a.commitReminder(ctx, t, rec.Title, rec.RemindAt, rec.Recurrence)
	case confirm.No:
		t.say("Ok, the reminder was discarded.")
		return session.Idle{}, nil
	}
	t.say(msgYesNo)
	return rec, nil
}

// commitReminder stores a reminder and schedules its first occurrence.
func (a *Assistant) commitReminder(ctx context.Context, t *turn, title string, at time.Time, r models.Recurrence) (session.Record, error) {
	rem, err := calendar.CreateReminder(a.db.WithContext(ctx), calendar.ReminderOpts{
		UserID:     t.userID,
		Title:      title,
		RemindAt:   at,
		Recurrence: r,
	})
	if err != nil {
		return nil, err
	}
	next, err := recurrence.Arm(ctx, a.sch, *rem, t.loc, t.now)
	if err != nil {
		// A retry of the turn must not find the first insert.
		if derr := calendar.DeleteReminder(a.db.WithContext(ctx), t.userID, rem.ID); derr != nil {
			t.log.Warn("reminder rollback failed", zap.String("reminder_id", rem.ID), zap.Error(derr))
		}
		return nil, fmt.Errorf("arm reminder: %w", err)
	}
	msg := fmt.Sprintf("Reminder set: %q on %s.", rem.Title, t.local(next).Format(dayTimeLayout))
	if rem.Recurring() {
		msg = fmt.Sprintf("Reminder set: %q, %s. Next: %s.", rem.Title, recurrenceLabels[r], t.local(next).Format(dayTimeLayout))
	}
	t.done(msg)
	return session.Idle{}, nil
}

// --- task wizard ---

func (a *Assistant) stateTaskTitle(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	if t.text == "" {
		t.say(msgAskTaskTitle)
		return session.TaskTitle{}, nil
	}
	t.say(msgAskTaskDue)
	return session.TaskDue{Title: t.text}, nil
}

func (a *Assistant) stateTaskDue(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.TaskDue](s)
	if !ok {
		return lost(t)
	}
	if oneOf(t.text, "skip", "no", "none", "-", "pular", "nao", "sem prazo") {
		return a.commitTask(ctx, t, rec.Title, nil)
	}
	due, ok := a.parseDue(t, t.text)
	if !ok {
		return rec, nil
	}
	return a.commitTask(ctx, t, rec.Title, &due)
}

// parseDue reads a due date, with an optional time of day. It replies with
// the problem when the text is unusable.
func (a *Assistant) parseDue(t *turn, text string) (time.Time, bool) {
	if _, _, hasClock := dates.FindClock(text); hasClock {
		at, err := dates.ParseDateTime(text, t.localNow())
		if err != nil {
			t.say(msgBadDate)
			return time.Time{}, false
		}
		if dates.CheckFuture(at, t.now, a.grace()) != nil {
			t.say(msgPast)
			return time.Time{}, false
		}
		return at, true
	}
	day, err := dates.ParseDate(text, t.localNow())
	if err != nil {
		t.say(msgBadDate)
		return time.Time{}, false
	}
	if day.Before(t.today()) {
		t.say(msgPastDay)
		return time.Time{}, false
	}
	return day, true
}

func (a *Assistant) commitTask(ctx context.Context, t *turn, title string, due *time.Time) (session.Record, error) {
	task, err := calendar.CreateTask(a.db.WithContext(ctx), t.userID, title, due)
	if err != nil {
		return nil, err
	}
	if due != nil {
		t.done(fmt.Sprintf("Task %q added, due %s.", task.Title, t.local(*due).Format(dayLayout)))
	} else {
		t.done(fmt.Sprintf("Task %q added.", task.Title))
	}
	return session.Idle{}, nil
}

// --- listing and search ---

func (a *Assistant) stateAgendaRange(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	today := t.today()
	switch n, _ := number(t.text); n {
	case 1:
		return a.showAgenda(ctx, t, "today", today, today.AddDate(0, 0, 1))
	case 2:
		return a.showAgenda(ctx, t, "tomorrow", today.AddDate(0, 0, 1), today.AddDate(0, 0, 2))
	case 3:
		return a.showAgenda(ctx, t, "the next 7 days", today, today.AddDate(0, 0, 7))
	case 4:
		return a.showUpcoming(ctx, t)
	}
	t.say(outOfRange(4), "", agendaRangeText)
	return session.AgendaRange{}, nil
}

func (a *Assistant) showAgenda(ctx context.Context, t *turn, label string, from, to time.Time) (session.Record, error) {
	items, err := calendar.Agenda(a.db.WithContext(ctx), t.userID, from, to)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		t.say(fmt.Sprintf("Nothing scheduled for %s.", label))
		return session.Idle{}, nil
	}
	t.list(enumerate(fmt.Sprintf("Your agenda for %s:", label), items, t.loc), refsOf(items))
	return session.Idle{}, nil
}

func (a *Assistant) showUpcoming(ctx context.Context, t *turn) (session.Record, error) {
	items, err := calendar.Upcoming(a.db.WithContext(ctx), t.userID, t.now)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		t.say("You have nothing coming up.")
		return session.Idle{}, nil
	}
	t.list(enumerate("Coming up:", items, t.loc), refsOf(items))
	return session.Idle{}, nil
}

func (a *Assistant) stateSearchQuery(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	if t.text == "" {
		t.say(msgAskQuery)
		return session.SearchQuery{}, nil
	}
	return a.search(ctx, t, t.text, nil)
}

func (a *Assistant) search(ctx context.Context, t *turn, query string, kinds []models.EntityKind) (session.Record, error) {
	items, err := calendar.Search(a.db.WithContext(ctx), t.userID, query, t.now, a.cfg.NLP.FuzzyThreshold, kinds...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		t.say(fmt.Sprintf("Nothing matches %q.", query))
		return session.Idle{}, nil
	}
	t.list(enumerate(fmt.Sprintf("Found %d for %q:", len(items), query), items, t.loc), refsOf(items))
	return session.Idle{}, nil
}

// --- selection and editing ---

func (a *Assistant) stateSelectEntity(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.SelectEntity](s)
	if !ok {
		return lost(t)
	}
	if rec.Purpose == session.PurposeDelete && len(rec.Candidates) > 1 && oneOf(t.text, "all", "todos", "todas", "tudo") {
		t.say(fmt.Sprintf("Delete all %d items? (yes/no)", len(rec.Candidates)))
		return session.BulkDeleteConfirm{Targets: rec.Candidates, Label: fmt.Sprintf("%d items", len(rec.Candidates))}, nil
	}
	n, ok := number(t.text)
	if !ok || n < 1 || n > len(rec.Candidates) {
		t.say(outOfRange(len(rec.Candidates)))
		return rec, nil
	}
	cand := rec.Candidates[n-1]
	it, ok, err := a.resolve(ctx, t, models.EntityRef{Kind: cand.Kind, ID: cand.ID})
	if err != nil || !ok {
		return session.Idle{}, err
	}

	switch rec.Purpose {
	case session.PurposeEdit:
		if rec.NewTime != nil {
			at := *rec.NewTime
			if rec.TimeOnly {
				at = a.onItemDay(t, it, dates.ClockOf(t.local(at)))
			}
			return a.moveTo(ctx, t, it, at)
		}
		t.say(editFieldText)
		return session.EditField{Target: cand}, nil
	case session.PurposeDelete:
		t.say(deletePrompt(it.Title))
		return session.DeleteConfirm{Target: cand}, nil
	case session.PurposeComplete:
		if it.Ref.Kind != models.KindTask {
			t.say(msgOnlyTasks)
			return session.Idle{}, nil
		}
		return a.completeNow(ctx, t, it.Ref.ID, it.Title)
	}
	t.say(describe(*it, t.loc))
	return session.Idle{}, nil
}

func (a *Assistant) stateEditField(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.EditField](s)
	if !ok {
		return lost(t)
	}
	var field session.Field
	n, _ := number(t.text)
	switch {
	case n == 1 || oneOf(t.text, "title", "name", "titulo", "nome"):
		field = session.FieldTitle
		t.say("Send the new title.")
	case n == 2 || oneOf(t.text, "date", "day", "data", "dia"):
		field = session.FieldDate
		t.say("Send the new date.")
	case n == 3 || oneOf(t.text, "time", "hour", "hora", "horario"):
		field = session.FieldTime
		t.say("Send the new time.")
	default:
		t.say(outOfRange(3), "", editFieldText)
		return rec, nil
	}
	return session.EditValue{Target: rec.Target, Field: field}, nil
}

func (a *Assistant) stateEditValue(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.EditValue](s)
	if !ok {
		return lost(t)
	}
	it, ok, err := a.resolve(ctx, t, models.EntityRef{Kind: rec.Target.Kind, ID: rec.Target.ID})
	if err != nil || !ok {
		return session.Idle{}, err
	}

	switch rec.Field {
	case session.FieldTitle:
		if t.text == "" {
			t.say("Send the new title.")
			return rec, nil
		}
		if err := calendar.Rename(a.db.WithContext(ctx), t.userID, it.Ref, t.text); err != nil {
			return a.notFoundOr(t, err)
		}
		t.done(fmt.Sprintf("Renamed to %q.", t.text))
		return session.Idle{}, nil

	case session.FieldDate:
		day, err := dates.ParseDate(t.text, t.localNow())
		if err != nil {
			t.say(msgBadDate)
			return rec, nil
		}
		clock := dates.Clock{}
		if it.When != nil {
			clock = dates.ClockOf(t.local(*it.When))
		}
		at := clock.On(day)
		if it.Ref.Kind == models.KindReminder && it.Recurrence != "" && it.Recurrence != models.RecurNone {
			return a.reanchor(ctx, t, it, at)
		}
		return a.moveTo(ctx, t, it, at)

	case session.FieldTime:
		clock, err := dates.ParseClock(t.text)
		if err != nil {
			t.say(msgBadTime)
			return rec, nil
		}
		return a.moveTo(ctx, t, it, a.onItemDay(t, it, clock))
	}
	return lost(t)
}

// reanchor moves a recurring reminder's series to start at at.
func (a *Assistant) reanchor(ctx context.Context, t *turn, it *calendar.Item, at time.Time) (session.Record, error) {
	if err := calendar.SetReminderAnchor(a.db.WithContext(ctx), t.userID, it.Ref.ID, at); err != nil {
		return a.notFoundOr(t, err)
	}
	if err := a.rearm(ctx, t, it.Ref.ID); err != nil {
		return nil, err
	}
	t.done(fmt.Sprintf("%q now starts on %s, %s.", it.Title, t.local(at).Format(dayTimeLayout), recurrenceLabels[it.Recurrence]))
	return session.Idle{}, nil
}

// --- destructive confirmations ---

func (a *Assistant) stateDeleteConfirm(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.DeleteConfirm](s)
	if !ok {
		return lost(t)
	}
	switch confirm.Match(t.text) {
	case confirm.Yes:
		ref := models.EntityRef{Kind: rec.Target.Kind, ID: rec.Target.ID}
		it, ok, err := a.resolve(ctx, t, ref)
		if err != nil || !ok {
			return session.Idle{}, err
		}
		return a.deleteNow(ctx, t, ref, it.Title)
	case confirm.No:
		t.say(msgKeptAsIs)
		return session.Idle{}, nil
	}
	t.say(msgYesNo)
	return rec, nil
}

func (a *Assistant) stateBulkDeleteConfirm(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.BulkDeleteConfirm](s)
	if !ok {
		return lost(t)
	}
	switch confirm.Match(t.text) {
	case confirm.Yes:
		deleted := 0
		for _, c := range rec.Targets {
			err := a.remove(ctx, t, models.EntityRef{Kind: c.Kind, ID: c.ID})
			if errors.Is(err, calendar.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			deleted++
		}
		t.done(fmt.Sprintf("Deleted %d of %d items.", deleted, len(rec.Targets)))
		return session.Idle{}, nil
	case confirm.No:
		t.say(msgKeptAsIs)
		return session.Idle{}, nil
	}
	t.say(msgYesNo)
	return rec, nil
}

func (a *Assistant) stateRecurringChoice(ctx context.Context, t *turn, s *session.Session) (session.Record, error) {
	rec, ok := session.Decode[session.RecurringChoice](s)
	if !ok {
		return lost(t)
	}
	n, _ := number(t.text)
	switch {
	case n == 1 || oneOf(t.text, "this", "this one", "only this", "next", "once", "so essa", "essa", "apenas essa"):
		return a.splitRecurring(ctx, t, rec, recurrence.ThisOccurrence)
	case n == 2 || oneOf(t.text, "all", "every", "all of them", "series", "todas", "todos"):
		return a.splitRecurring(ctx, t, rec, recurrence.AllOccurrences)
	}
	t.say(outOfRange(2), "", recurringChoiceText)
	return rec, nil
}
