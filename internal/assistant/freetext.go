package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/confirm"
	"github.com/zulandar/agenda/internal/dates"
	"github.com/zulandar/agenda/internal/fuzzy"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/nlp"
	"github.com/zulandar/agenda/internal/session"
)

// fallback hands idle free text to the classifier. Anything below the
// intent's confidence threshold gets the clarification prompt and changes
// nothing.
func (a *Assistant) fallback(ctx context.Context, t *turn) (session.Record, error) {
	if t.text == "" {
		t.say(menuText)
		return session.Idle{}, nil
	}
	req, focus := a.request(ctx, t)

	res, err := a.classifier.Classify(ctx, req)
	if err != nil {
		t.log.Warn("classifier failed", zap.Error(err))
		a.metrics.NLPDecisions.WithLabelValues("error", nlp.Clarify.String()).Inc()
		t.say(msgClarify)
		return session.Idle{}, nil
	}
	decision := a.policy.Decide(res)
	a.metrics.NLPDecisions.WithLabelValues(string(res.Intent), decision.String()).Inc()
	t.log.Debug("classified",
		zap.String("intent", string(res.Intent)),
		zap.Float64("confidence", res.Confidence),
		zap.String("decision", decision.String()))
	if decision != nlp.Accept {
		t.say(msgClarify)
		return session.Idle{}, nil
	}

	s := res.Slots
	switch res.Intent {
	case nlp.IntentGreeting:
		t.say(fmt.Sprintf("Hi %s!", t.name), "", menuText)
		return session.Idle{}, nil
	case nlp.IntentListAgenda:
		return a.nlpAgenda(ctx, t, s)
	case nlp.IntentSearch:
		query := firstNonEmpty(s.Query, s.Title)
		if query == "" {
			t.say(msgAskQuery)
			return session.SearchQuery{}, nil
		}
		return a.search(ctx, t, query, kindsOf(s.Kind))
	case nlp.IntentCreateEvent:
		return a.nlpEvent(ctx, t, s)
	case nlp.IntentCreateReminder:
		return a.nlpReminder(ctx, t, s)
	case nlp.IntentCreateTask:
		return a.nlpTask(ctx, t, s)
	case nlp.IntentDelete, nlp.IntentComplete, nlp.IntentUpdate:
		return a.nlpMutate(ctx, t, res.Intent, s, focus)
	}
	t.say(msgClarify)
	return session.Idle{}, nil
}

// request assembles classifier context. Every piece is best effort.
func (a *Assistant) request(ctx context.Context, t *turn) (nlp.Request, []calendar.Item) {
	req := nlp.Request{Text: t.text, Timezone: t.loc.String()}

	if hist, err := a.sessions.History(ctx, t.userID); err != nil {
		t.log.Warn("load history failed", zap.Error(err))
	} else {
		// The newest entry is the message being classified.
		if n := len(hist); n > 0 && hist[n-1].Role == session.RoleUser && hist[n-1].Content == t.text {
			hist = hist[:n-1]
		}
		for _, h := range hist {
			req.History = append(req.History, nlp.Turn{Role: string(h.Role), Content: h.Content})
		}
	}

	if contacts, err := calendar.ListContacts(a.db.WithContext(ctx), t.userID); err != nil {
		t.log.Warn("load contacts failed", zap.Error(err))
	} else {
		for _, c := range contacts {
			req.Contacts = append(req.Contacts, nlp.Contact{Name: c.Name, Phone: c.Phone})
		}
	}

	refs, err := a.quick.TakeContext(ctx, t.userID)
	if err != nil {
		a.metrics.StoreErrors.WithLabelValues("quick_context").Inc()
		t.log.Warn("load entity context failed", zap.Error(err))
	}
	var focus []calendar.Item
	for _, ref := range refs {
		it, err := calendar.Resolve(a.db.WithContext(ctx), t.userID, ref)
		if err != nil {
			continue
		}
		focus = append(focus, *it)
		req.Focus = append(req.Focus, it.Title)
	}
	return req, focus
}

func (a *Assistant) nlpAgenda(ctx context.Context, t *turn, s nlp.Slots) (session.Record, error) {
	today := t.today()
	switch fuzzy.Normalize(s.Range) {
	case "today", "hoje":
		return a.showAgenda(ctx, t, "today", today, today.AddDate(0, 0, 1))
	case "tomorrow", "amanha":
		return a.showAgenda(ctx, t, "tomorrow", today.AddDate(0, 0, 1), today.AddDate(0, 0, 2))
	case "week", "semana":
		return a.showAgenda(ctx, t, "the next 7 days", today, today.AddDate(0, 0, 7))
	}
	if s.Date != "" {
		day, err := dates.ParseDate(s.Date, t.localNow())
		if err != nil {
			t.say(msgBadDate)
			return session.Idle{}, nil
		}
		return a.showAgenda(ctx, t, day.Format(dayLayout), day, day.AddDate(0, 0, 1))
	}
	return a.showUpcoming(ctx, t)
}

// nlpEvent creates an event from slots, entering the wizard at the first
// missing piece.
func (a *Assistant) nlpEvent(ctx context.Context, t *turn, s nlp.Slots) (session.Record, error) {
	if s.Title == "" {
		t.say(msgAskEventTitle)
		return session.EventTitle{}, nil
	}
	when := strings.TrimSpace(s.Date + " " + s.Time)
	if when == "" {
		t.say(msgAskEventDate)
		return session.EventDate{Title: s.Title}, nil
	}
	start, err := dates.ParseDateTime(when, t.localNow())
	if errors.Is(err, dates.ErrNoTime) {
		day, err := dates.ParseDate(when, t.localNow())
		if err != nil {
			t.say(msgBadDate)
			return session.EventDate{Title: s.Title}, nil
		}
		if day.Before(t.today()) {
			t.say(msgPastDay)
			return session.EventDate{Title: s.Title}, nil
		}
		t.say(msgAskEventTime)
		return session.EventTime{Title: s.Title, Date: day.Format(dateOnlyLayout)}, nil
	}
	if err != nil {
		t.say(msgBadDate)
		return session.EventDate{Title: s.Title}, nil
	}
	if dates.CheckFuture(start, t.now, a.grace()) != nil {
		t.say(msgPast)
		return session.EventDate{Title: s.Title}, nil
	}
	return a.commitEvent(ctx, t, s.Title, start, start.Add(models.DefaultEventDuration), true)
}

func (a *Assistant) nlpReminder(ctx context.Context, t *turn, s nlp.Slots) (session.Record, error) {
	if s.Title == "" {
		t.say(msgAskRemTitle)
		return session.ReminderTitle{}, nil
	}
	next := session.ReminderDateTime{Title: s.Title}
	when := strings.TrimSpace(s.Date + " " + s.Time)
	if when == "" {
		t.say(msgAskRemWhen)
		return next, nil
	}
	at, err := dates.ParseDateTime(when, t.localNow())
	switch {
	case errors.Is(err, dates.ErrNoTime):
		t.say(msgAskRemTime)
		return next, nil
	case err != nil:
		t.say(msgBadDateTime)
		return next, nil
	}
	if dates.CheckFuture(at, t.now, a.grace()) != nil {
		t.say(msgPast)
		return next, nil
	}
	r := models.RecurNone
	if s.Recurrence != "" {
		parsed, ok := parseRecurrence(s.Recurrence)
		if !ok {
			t.say(recurrenceText)
			return session.ReminderRecurrence{Title: s.Title, RemindAt: at}, nil
		}
		r = parsed
	}
	return a.commitReminder(ctx, t, s.Title, at, r)
}

func (a *Assistant) nlpTask(ctx context.Context, t *turn, s nlp.Slots) (session.Record, error) {
	if s.Title == "" {
		t.say(msgAskTaskTitle)
		return session.TaskTitle{}, nil
	}
	when := strings.TrimSpace(s.Date + " " + s.Time)
	if when == "" {
		return a.commitTask(ctx, t, s.Title, nil)
	}
	due, ok := a.parseDue(t, when)
	if !ok {
		return session.TaskDue{Title: s.Title}, nil
	}
	return a.commitTask(ctx, t, s.Title, &due)
}

// nlpMutate finds the target of an update, delete or completion. One match
// goes to confirmation; several are pinned for a numeric choice.
func (a *Assistant) nlpMutate(ctx context.Context, t *turn, intent nlp.Intent, s nlp.Slots, focus []calendar.Item) (session.Record, error) {
	kinds := kindsOf(s.Kind)
	if intent == nlp.IntentComplete {
		kinds = []models.EntityKind{models.KindTask}
	}

	var items []calendar.Item
	query := firstNonEmpty(s.Title, s.Query)
	if query != "" {
		found, err := calendar.Search(a.db.WithContext(ctx), t.userID, query, t.now, a.cfg.NLP.FuzzyThreshold, kinds...)
		if err != nil {
			return nil, err
		}
		items = found
	} else {
		items = filterKinds(focus, kinds)
	}
	if len(items) == 0 {
		if query == "" {
			t.say("Which item? Tell me its name.")
		} else {
			t.say(fmt.Sprintf("I could not find anything matching %q.", query))
		}
		return session.Idle{}, nil
	}

	var newTime *time.Time
	if intent == nlp.IntentUpdate {
		at, ok, err := a.updateTime(t, s, items)
		if err != nil {
			return session.Idle{}, nil
		}
		if ok {
			newTime = &at
		}
	}

	if len(items) > 1 {
		purpose := session.PurposeEdit
		switch intent {
		case nlp.IntentDelete:
			purpose = session.PurposeDelete
		case nlp.IntentComplete:
			purpose = session.PurposeComplete
		}
		sel := a.pin(t, purpose, items, newTime)
		sel.TimeOnly = newTime != nil && s.Date == ""
		return sel, nil
	}

	it := items[0]
	switch intent {
	case nlp.IntentDelete:
		return session.Idle{}, a.askDelete(ctx, t, &it)
	case nlp.IntentComplete:
		p := confirm.Pending{Action: confirm.ActionComplete, Kind: it.Ref.Kind, EntityID: it.Ref.ID, EntityLabel: it.Title}
		if err := a.confirms.Put(ctx, t.userID, p); err != nil {
			return nil, err
		}
		t.say(pendingPrompt(&p))
		return session.Idle{}, nil
	}
	if newTime == nil {
		t.say(fmt.Sprintf("Editing %q.", it.Title), editFieldText)
		return session.EditField{Target: session.Candidate{Kind: it.Ref.Kind, ID: it.Ref.ID, Label: describe(it, t.loc)}}, nil
	}
	local := t.local(*newTime)
	p := confirm.Pending{Action: confirm.ActionReschedule, Kind: it.Ref.Kind, EntityID: it.Ref.ID, EntityLabel: it.Title, NewTime: &local}
	if err := a.confirms.Put(ctx, t.userID, p); err != nil {
		return nil, err
	}
	t.say(pendingPrompt(&p))
	return session.Idle{}, nil
}

// updateTime reads the new time of an update. With a single target a lone
// date keeps the item's time of day and a lone time keeps its day. The bool
// is false when the slots name no time at all; a non-nil error means the
// user has already been told what was wrong.
func (a *Assistant) updateTime(t *turn, s nlp.Slots, items []calendar.Item) (time.Time, bool, error) {
	if s.Date == "" && s.Time == "" {
		return time.Time{}, false, nil
	}
	var base *time.Time
	if len(items) == 1 {
		base = items[0].When
	}

	switch {
	case s.Time != "" && (s.Date != "" || base == nil):
		at, err := dates.ParseDateTime(strings.TrimSpace(s.Date+" "+s.Time), t.localNow())
		if err != nil {
			t.say(msgBadDateTime)
			return time.Time{}, false, err
		}
		return at, true, nil

	case s.Time != "":
		clock, err := dates.ParseClock(s.Time)
		if err != nil {
			t.say(msgBadTime)
			return time.Time{}, false, err
		}
		return a.onItemDay(t, &items[0], clock), true, nil
	}

	day, err := dates.ParseDate(s.Date, t.localNow())
	if err != nil {
		t.say(msgBadDate)
		return time.Time{}, false, err
	}
	if base == nil {
		return time.Time{}, false, nil
	}
	return dates.ClockOf(t.local(*base)).On(day), true, nil
}

func kindsOf(s string) []models.EntityKind {
	switch fuzzy.Normalize(s) {
	case "event", "evento":
		return []models.EntityKind{models.KindEvent}
	case "reminder", "lembrete":
		return []models.EntityKind{models.KindReminder}
	case "task", "tarefa":
		return []models.EntityKind{models.KindTask}
	}
	return nil
}

func filterKinds(items []calendar.Item, kinds []models.EntityKind) []calendar.Item {
	if len(kinds) == 0 {
		return items
	}
	var out []calendar.Item
	for _, it := range items {
		for _, k := range kinds {
			if it.Ref.Kind == k {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
