package session

import (
	"time"

	"github.com/zulandar/agenda/internal/models"
)

// Record is the typed context carried by one state. Storing a record
// replaces the previous context wholesale, so each record holds every field
// later steps of its wizard need.
type Record interface {
	State() State
}

// validator is implemented by records with required fields.
type validator interface {
	valid() bool
}

// Idle is the main menu.
type Idle struct{}

func (Idle) State() State { return StateIdle }

// EventTitle awaits the title of a new event.
type EventTitle struct{}

func (EventTitle) State() State { return StateEventTitle }

// EventDate awaits the date of a new event.
type EventDate struct {
	Title string `json:"title"`
}

func (EventDate) State() State  { return StateEventDate }
func (r EventDate) valid() bool { return r.Title != "" }

// EventTime awaits the start time of a new event.
type EventTime struct {
	Title string `json:"title"`
	Date  string `json:"date"` // 2006-01-02 in the user's zone
}

func (EventTime) State() State  { return StateEventTime }
func (r EventTime) valid() bool { return r.Title != "" && r.Date != "" }

// EventConflict holds a pending event that overlaps existing ones.
type EventConflict struct {
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Conflicts []string  `json:"conflicts"`
}

func (EventConflict) State() State { return StateEventConflict }
func (r EventConflict) valid() bool {
	return r.Title != "" && !r.StartsAt.IsZero() && r.EndsAt.After(r.StartsAt)
}

// ReminderTitle awaits the title of a new reminder.
type ReminderTitle struct{}

func (ReminderTitle) State() State { return StateReminderTitle }

// ReminderDateTime awaits when the reminder fires.
type ReminderDateTime struct {
	Title string `json:"title"`
}

func (ReminderDateTime) State() State  { return StateReminderDateTime }
func (r ReminderDateTime) valid() bool { return r.Title != "" }

// ReminderRecurrence awaits the recurrence choice.
type ReminderRecurrence struct {
	Title    string    `json:"title"`
	RemindAt time.Time `json:"remind_at"`
}

func (ReminderRecurrence) State() State  { return StateReminderRecurrence }
func (r ReminderRecurrence) valid() bool { return r.Title != "" && !r.RemindAt.IsZero() }

// ReminderConfirm awaits confirmation of a fully described reminder.
type ReminderConfirm struct {
	Title      string            `json:"title"`
	RemindAt   time.Time         `json:"remind_at"`
	Recurrence models.Recurrence `json:"recurrence"`
}

func (ReminderConfirm) State() State { return StateReminderConfirm }
func (r ReminderConfirm) valid() bool {
	return r.Title != "" && !r.RemindAt.IsZero() && r.Recurrence.Valid()
}

// TaskTitle awaits the title of a new task.
type TaskTitle struct{}

func (TaskTitle) State() State { return StateTaskTitle }

// TaskDue awaits an optional due date.
type TaskDue struct {
	Title string `json:"title"`
}

func (TaskDue) State() State  { return StateTaskDue }
func (r TaskDue) valid() bool { return r.Title != "" }

// AgendaRange awaits which period to list.
type AgendaRange struct{}

func (AgendaRange) State() State { return StateAgendaRange }

// SearchQuery awaits free-text search terms.
type SearchQuery struct{}

func (SearchQuery) State() State { return StateSearchQuery }

// Purpose is what happens to an entity once it is selected.
type Purpose string

const (
	PurposeEdit     Purpose = "edit"
	PurposeDelete   Purpose = "delete"
	PurposeComplete Purpose = "complete"
	PurposeView     Purpose = "view"
)

// Candidate is one numbered entry of a pinned selection list.
type Candidate struct {
	Kind  models.EntityKind `json:"kind"`
	ID    string            `json:"id"`
	Label string            `json:"label"`
}

// SelectEntity pins a candidate list and awaits a 1-based choice.
type SelectEntity struct {
	Purpose    Purpose     `json:"purpose"`
	Candidates []Candidate `json:"candidates"`
	// NewTime carries an already parsed update target for edits chosen
	// from free text.
	NewTime *time.Time `json:"new_time,omitempty"`
	// TimeOnly means only NewTime's time of day was given; the chosen item
	// keeps its day.
	TimeOnly bool `json:"time_only,omitempty"`
}

func (SelectEntity) State() State { return StateSelectEntity }
func (r SelectEntity) valid() bool {
	switch r.Purpose {
	case PurposeEdit, PurposeDelete, PurposeComplete, PurposeView:
	default:
		return false
	}
	return len(r.Candidates) > 0
}

// Field is an editable attribute.
type Field string

const (
	FieldTitle Field = "title"
	FieldDate  Field = "date"
	FieldTime  Field = "time"
)

// EditField awaits which attribute of the target to change.
type EditField struct {
	Target Candidate `json:"target"`
}

func (EditField) State() State  { return StateEditField }
func (r EditField) valid() bool { return r.Target.ID != "" && r.Target.Kind.Valid() }

// EditValue awaits the new value for Field.
type EditValue struct {
	Target Candidate `json:"target"`
	Field  Field     `json:"field"`
}

func (EditValue) State() State { return StateEditValue }
func (r EditValue) valid() bool {
	if r.Target.ID == "" || !r.Target.Kind.Valid() {
		return false
	}
	switch r.Field {
	case FieldTitle, FieldDate, FieldTime:
		return true
	}
	return false
}

// DeleteConfirm awaits yes/no for deleting Target.
type DeleteConfirm struct {
	Target Candidate `json:"target"`
}

func (DeleteConfirm) State() State  { return StateDeleteConfirm }
func (r DeleteConfirm) valid() bool { return r.Target.ID != "" && r.Target.Kind.Valid() }

// BulkDeleteConfirm awaits yes/no for deleting every target.
type BulkDeleteConfirm struct {
	Targets []Candidate `json:"targets"`
	Label   string      `json:"label"`
}

func (BulkDeleteConfirm) State() State  { return StateBulkDeleteConfirm }
func (r BulkDeleteConfirm) valid() bool { return len(r.Targets) > 0 }

// RecurringChoice awaits whether a move to NewTime applies to one occurrence
// or to the whole series.
type RecurringChoice struct {
	ReminderID string    `json:"reminder_id"`
	Label      string    `json:"label"`
	NewTime    time.Time `json:"new_time"`
}

func (RecurringChoice) State() State  { return StateRecurringChoice }
func (r RecurringChoice) valid() bool { return r.ReminderID != "" && !r.NewTime.IsZero() }
