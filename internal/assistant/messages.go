package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/session"
)

const (
	msgApology       = "Sorry, something went wrong on my side. Please try again in a moment."
	msgLostTrack     = "Sorry, I lost track of what we were doing."
	msgClarify       = "I'm not sure what you mean. You can rephrase it, or reply with a number from the menu."
	msgBadDate       = "I could not understand the date. Try something like \"tomorrow\", \"friday\" or \"25/12\"."
	msgBadTime       = "I could not understand the time. Try something like \"14:30\" or \"9am\"."
	msgBadDateTime   = "I could not understand when. Try something like \"tomorrow 9am\" or \"in 2 hours\"."
	msgPast          = "That time has already passed. Please give a time in the future."
	msgPastDay       = "That day has already passed. Please give a date from today on."
	msgNotFound      = "I could not find that item. It may have been deleted."
	msgOnlyTasks     = "Only tasks can be marked as done."
	msgYesNo         = "Please answer yes or no."
	msgCancelled     = "Cancelled."
	msgKeptAsIs      = "Ok, nothing was changed."
	msgLockedOut     = "Too many wrong PINs. Your account is locked, try again later."
	msgAskName       = "Welcome! I'm your agenda assistant. What's your name?"
	msgInvalidName   = "Please send your name (up to 60 characters)."
	msgAskNewPIN     = "Nice to meet you. Choose a PIN of 4 to 6 digits."
	msgInvalidPIN    = "The PIN must have 4 to 6 digits."
	msgAskPIN        = "Welcome back! Please send your PIN."
	msgLoggedOut     = "You are logged out. Send any message to log in again."
	msgAskEventTitle = "What is the event called?"
	msgAskEventDate  = "Which day? (e.g. today, tomorrow, friday, 25/12)"
	msgAskEventTime  = "What time does it start? (e.g. 14:30)"
	msgAskRemTitle   = "What should I remind you about?"
	msgAskRemWhen    = "When? (e.g. tomorrow 9am, friday 18:00, in 2 hours)"
	msgAskRemTime    = "Please include the time too, e.g. \"tomorrow 9am\"."
	msgAskTaskTitle  = "What's the task?"
	msgAskTaskDue    = "When is it due? Send a date, or \"skip\"."
	msgAskQuery      = "What should I search for?"
	msgHint          = "Tip: reply to this message with \"delete 2\", \"done 1\" or \"move 3 to 15:00\" to act on an item."
)

const menuText = `What would you like to do?
1. New event
2. New reminder
3. New task
4. Agenda
5. Search
6. Edit an item
7. Delete an item
8. Complete a task`

// menuSize is the number of entries in menuText.
const menuSize = 8

const helpText = `I keep your events, reminders and tasks.

Write naturally ("remind me to call Ana tomorrow at 9") or pick a number from the menu.
Reply to any list I send with "delete 2", "done 1" or "move 3 to 15:00".

Commands:
menu - back to the main menu
cancel - abandon what we were doing
help - this message
logout - sign out`

const agendaRangeText = `Which period?
1. Today
2. Tomorrow
3. Next 7 days
4. Everything upcoming`

const editFieldText = `What do you want to change?
1. Title
2. Date
3. Time`

const recurrenceText = `Should it repeat?
1. No
2. Every day
3. Every weekday
4. Every week
5. Every month
6. Every year`

const recurringChoiceText = `This reminder repeats. Change:
1. Only the next occurrence
2. All occurrences`

var recurrenceLabels = map[models.Recurrence]string{
	models.RecurNone:     "once",
	models.RecurDaily:    "every day",
	models.RecurWeekdays: "every weekday",
	models.RecurWeekly:   "every week",
	models.RecurMonthly:  "every month",
	models.RecurYearly:   "every year",
}

var kindLabels = map[models.EntityKind]string{
	models.KindEvent:    "event",
	models.KindReminder: "reminder",
	models.KindTask:     "task",
}

const (
	dayLayout      = "Mon 02 Jan"
	dayTimeLayout  = "Mon 02 Jan 15:04"
	clockLayout    = "15:04"
	dateOnlyLayout = "2006-01-02"
)

// describe renders an item on one line in loc.
func describe(it calendar.Item, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(it.Title)
	if it.When != nil {
		at := it.When.In(loc)
		switch it.Ref.Kind {
		case models.KindTask:
			fmt.Fprintf(&b, " (due %s)", at.Format(dayLayout))
		default:
			fmt.Fprintf(&b, " - %s", at.Format(dayTimeLayout))
		}
	}
	if it.Recurrence != "" && it.Recurrence != models.RecurNone {
		fmt.Fprintf(&b, ", %s", recurrenceLabels[it.Recurrence])
	}
	return b.String()
}

// enumerate renders a numbered list under header.
func enumerate(header string, items []calendar.Item, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(header)
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, kindIcon(it.Ref.Kind), describe(it, loc))
	}
	return b.String()
}

func kindIcon(k models.EntityKind) string {
	switch k {
	case models.KindEvent:
		return "📅"
	case models.KindReminder:
		return "⏰"
	case models.KindTask:
		return "☑️"
	}
	return "•"
}

func refsOf(items []calendar.Item) []models.EntityRef {
	refs := make([]models.EntityRef, len(items))
	for i, it := range items {
		refs[i] = it.Ref
	}
	return refs
}

func candidatesOf(items []calendar.Item, loc *time.Location) []session.Candidate {
	out := make([]session.Candidate, len(items))
	for i, it := range items {
		out[i] = session.Candidate{Kind: it.Ref.Kind, ID: it.Ref.ID, Label: describe(it, loc)}
	}
	return out
}

// enumerateCandidates renders a pinned selection list.
func enumerateCandidates(header string, cands []session.Candidate) string {
	var b strings.Builder
	b.WriteString(header)
	for i, c := range cands {
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, kindIcon(c.Kind), c.Label)
	}
	return b.String()
}

func candidateRefs(cands []session.Candidate) []models.EntityRef {
	refs := make([]models.EntityRef, len(cands))
	for i, c := range cands {
		refs[i] = models.EntityRef{Kind: c.Kind, ID: c.ID}
	}
	return refs
}

func purposeVerb(p session.Purpose) string {
	switch p {
	case session.PurposeEdit:
		return "edit"
	case session.PurposeDelete:
		return "delete"
	case session.PurposeComplete:
		return "complete"
	}
	return "open"
}

func deletePrompt(label string) string {
	return fmt.Sprintf("Delete %q? (yes/no)", label)
}

func reschedulePrompt(label string, at time.Time) string {
	return fmt.Sprintf("Move %q to %s? (yes/no)", label, at.Format(dayTimeLayout))
}

func outOfRange(n int) string {
	if n == 1 {
		return "Please reply with 1."
	}
	return fmt.Sprintf("Please reply with a number from 1 to %d.", n)
}
