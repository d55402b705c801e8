// Package nlp defines the intent classifier contract and the
// confidence policy that decides whether a classification may act.
package nlp

import (
	"context"
	"strings"
)

// Intent is a classifier label.
type Intent string

const (
	IntentCreateEvent    Intent = "create_event"
	IntentCreateReminder Intent = "create_reminder"
	IntentCreateTask     Intent = "create_task"
	IntentListAgenda     Intent = "list_agenda"
	IntentSearch         Intent = "search"
	IntentUpdate         Intent = "update"
	IntentDelete         Intent = "delete"
	IntentComplete       Intent = "complete_task"
	IntentGreeting       Intent = "greeting"
	IntentUnknown        Intent = "unknown"
)

// Intents lists every label the classifier may return.
var Intents = []Intent{
	IntentCreateEvent, IntentCreateReminder, IntentCreateTask,
	IntentListAgenda, IntentSearch,
	IntentUpdate, IntentDelete, IntentComplete,
	IntentGreeting, IntentUnknown,
}

// ParseIntent maps a raw label to a known Intent, defaulting to unknown.
func ParseIntent(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, i := range Intents {
		if string(i) == s {
			return i
		}
	}
	return IntentUnknown
}

// Class groups intents by how much damage a misclassification does.
type Class int

const (
	ClassNone Class = iota
	ClassReadOnly
	ClassMutate
	ClassCreate
)

func (c Class) String() string {
	switch c {
	case ClassReadOnly:
		return "read_only"
	case ClassMutate:
		return "mutate"
	case ClassCreate:
		return "create"
	}
	return "none"
}

// Class returns the confidence class of i.
func (i Intent) Class() Class {
	switch i {
	case IntentListAgenda, IntentSearch, IntentGreeting:
		return ClassReadOnly
	case IntentUpdate, IntentDelete, IntentComplete:
		return ClassMutate
	case IntentCreateEvent, IntentCreateReminder, IntentCreateTask:
		return ClassCreate
	}
	return ClassNone
}

// Slots are the structured arguments extracted from free text. Dates and
// times stay as the user wrote them; the caller normalizes them.
type Slots struct {
	Title      string `json:"title,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Recurrence string `json:"recurrence,omitempty"`
	Query      string `json:"query,omitempty"`
	Range      string `json:"range,omitempty"` // today, tomorrow, week
	Kind       string `json:"kind,omitempty"`  // event, reminder, task
	Contact    string `json:"contact,omitempty"`
}

// Result is one classification.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Slots      Slots   `json:"slots"`
}

// Contact is one roster entry offered to the classifier.
type Contact struct {
	Name  string
	Phone string
}

// Turn is one line of recent conversation.
type Turn struct {
	Role    string
	Content string
}

// Request is the classifier input for one turn.
type Request struct {
	Text     string
	Contacts []Contact
	Timezone string
	History  []Turn
	// Focus lists entities the user was just looking at, when the message
	// replied to one.
	Focus []string
}

// Classifier maps free text to an intent.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// Nop is a Classifier that never understands anything. It backs
// deployments without a language model; every free-text turn gets the
// clarification prompt.
type Nop struct{}

func (Nop) Classify(context.Context, Request) (Result, error) {
	return Result{Intent: IntentUnknown}, nil
}
