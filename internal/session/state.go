package session

// State is the wizard step a user is in.
type State string

const (
	StateIdle State = "idle"

	StateEventTitle    State = "event_title"
	StateEventDate     State = "event_date"
	StateEventTime     State = "event_time"
	StateEventConflict State = "event_conflict"

	StateReminderTitle      State = "reminder_title"
	StateReminderDateTime   State = "reminder_datetime"
	StateReminderRecurrence State = "reminder_recurrence"
	StateReminderConfirm    State = "reminder_confirm"

	StateTaskTitle State = "task_title"
	StateTaskDue   State = "task_due"

	StateAgendaRange State = "agenda_range"
	StateSearchQuery State = "search_query"

	StateSelectEntity State = "select_entity"
	StateEditField    State = "edit_field"
	StateEditValue    State = "edit_value"

	StateDeleteConfirm     State = "delete_confirm"
	StateBulkDeleteConfirm State = "bulk_delete_confirm"

	StateRecurringChoice State = "recurring_choice"
)

var allStates = []State{
	StateIdle,
	StateEventTitle, StateEventDate, StateEventTime, StateEventConflict,
	StateReminderTitle, StateReminderDateTime, StateReminderRecurrence, StateReminderConfirm,
	StateTaskTitle, StateTaskDue,
	StateAgendaRange, StateSearchQuery,
	StateSelectEntity, StateEditField, StateEditValue,
	StateDeleteConfirm, StateBulkDeleteConfirm,
	StateRecurringChoice,
}

// States returns every defined state.
func States() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// Valid reports whether s is a defined state.
func (s State) Valid() bool {
	for _, v := range allStates {
		if s == v {
			return true
		}
	}
	return false
}
