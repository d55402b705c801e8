package models

import "time"

// DefaultEventDuration is applied when an event is created without an end.
const DefaultEventDuration = time.Hour

// Event is a calendar appointment with a start and end.
type Event struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index:idx_event_user_start"`
	Title     string    `gorm:"size:256;not null"`
	StartsAt  time.Time `gorm:"not null;index:idx_event_user_start"`
	EndsAt    time.Time `gorm:"not null"`
	Location  string    `gorm:"size:256"`
	Notes     string    `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether e intersects the half-open range [start, end).
func (e Event) Overlaps(start, end time.Time) bool {
	return e.StartsAt.Before(end) && start.Before(e.EndsAt)
}
