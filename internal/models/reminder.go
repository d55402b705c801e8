package models

import "time"

// Recurrence is how often a reminder repeats.
type Recurrence string

const (
	RecurNone     Recurrence = "none"
	RecurDaily    Recurrence = "daily"
	RecurWeekdays Recurrence = "weekdays"
	RecurWeekly   Recurrence = "weekly"
	RecurMonthly  Recurrence = "monthly"
	RecurYearly   Recurrence = "yearly"
)

// Recurrences lists the selectable recurrences in menu order.
var Recurrences = []Recurrence{RecurNone, RecurDaily, RecurWeekdays, RecurWeekly, RecurMonthly, RecurYearly}

// Valid reports whether r is a known recurrence.
func (r Recurrence) Valid() bool {
	for _, v := range Recurrences {
		if r == v {
			return true
		}
	}
	return false
}

// Reminder fires a chat notification at RemindAt. For recurring reminders
// RemindAt is the anchor from which later occurrences are derived.
type Reminder struct {
	ID         string     `gorm:"primaryKey;size:36"`
	UserID     string     `gorm:"size:36;not null;index"`
	Title      string     `gorm:"size:256;not null"`
	RemindAt   time.Time  `gorm:"not null;index"`
	Recurrence Recurrence `gorm:"size:16;not null;default:none"`
	Active     bool       `gorm:"not null;default:true;index"`
	ParentID   string     `gorm:"size:36"` // set on one-shot splits of a recurring reminder
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recurring reports whether the reminder repeats.
func (r Reminder) Recurring() bool {
	return r.Recurrence != "" && r.Recurrence != RecurNone
}

// JobID is the scheduler job identifier for the reminder.
func (r Reminder) JobID() string {
	return "reminder:" + r.ID
}
