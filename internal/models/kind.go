package models

// EntityKind names the kind of domain entity a chat reference points at.
type EntityKind string

const (
	KindEvent    EntityKind = "event"
	KindReminder EntityKind = "reminder"
	KindTask     EntityKind = "task"
)

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindEvent, KindReminder, KindTask:
		return true
	}
	return false
}

// EntityRef identifies one owned entity.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}
