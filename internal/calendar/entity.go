package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/zulandar/agenda/internal/fuzzy"
	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

// Item is any owned entity flattened for listing, searching and selection.
type Item struct {
	Ref   models.EntityRef
	Title string
	When  *time.Time // event start, reminder time or task due date
	// Recurrence is set for reminders.
	Recurrence models.Recurrence
}

// Resolve loads the entity behind ref for userID. It is the ownership check
// run before acting on any id that came back from the user.
func Resolve(db *gorm.DB, userID string, ref models.EntityRef) (*Item, error) {
	switch ref.Kind {
	case models.KindEvent:
		e, err := GetEvent(db, userID, ref.ID)
		if err != nil {
			return nil, err
		}
		return eventItem(*e), nil
	case models.KindReminder:
		r, err := GetReminder(db, userID, ref.ID)
		if err != nil {
			return nil, err
		}
		return reminderItem(*r), nil
	case models.KindTask:
		t, err := GetTask(db, userID, ref.ID)
		if err != nil {
			return nil, err
		}
		return taskItem(*t), nil
	}
	return nil, fmt.Errorf("calendar: unknown kind %q", ref.Kind)
}

// Delete removes the entity behind ref.
func Delete(db *gorm.DB, userID string, ref models.EntityRef) error {
	switch ref.Kind {
	case models.KindEvent:
		return DeleteEvent(db, userID, ref.ID)
	case models.KindReminder:
		return DeleteReminder(db, userID, ref.ID)
	case models.KindTask:
		return DeleteTask(db, userID, ref.ID)
	}
	return fmt.Errorf("calendar: unknown kind %q", ref.Kind)
}

// Rename changes the title of the entity behind ref.
func Rename(db *gorm.DB, userID string, ref models.EntityRef, title string) error {
	switch ref.Kind {
	case models.KindEvent:
		return RenameEvent(db, userID, ref.ID, title)
	case models.KindReminder:
		return RenameReminder(db, userID, ref.ID, title)
	case models.KindTask:
		return RenameTask(db, userID, ref.ID, title)
	}
	return fmt.Errorf("calendar: unknown kind %q", ref.Kind)
}

func eventItem(e models.Event) *Item {
	at := e.StartsAt
	return &Item{Ref: models.EntityRef{Kind: models.KindEvent, ID: e.ID}, Title: e.Title, When: &at}
}

func reminderItem(r models.Reminder) *Item {
	at := r.RemindAt
	return &Item{
		Ref:        models.EntityRef{Kind: models.KindReminder, ID: r.ID},
		Title:      r.Title,
		When:       &at,
		Recurrence: r.Recurrence,
	}
}

func taskItem(t models.Task) *Item {
	return &Item{Ref: models.EntityRef{Kind: models.KindTask, ID: t.ID}, Title: t.Title, When: t.DueAt}
}

// Agenda returns the user's events and reminders in [from, to) and open
// tasks due then, ordered by time.
func Agenda(db *gorm.DB, userID string, from, to time.Time) ([]Item, error) {
	events, err := ListEvents(db, userID, from, to)
	if err != nil {
		return nil, err
	}
	reminders, err := RemindersBetween(db, userID, from, to)
	if err != nil {
		return nil, err
	}
	tasks, err := TasksDueBetween(db, userID, from, to)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(events)+len(reminders)+len(tasks))
	for _, e := range events {
		items = append(items, *eventItem(e))
	}
	for _, r := range reminders {
		items = append(items, *reminderItem(r))
	}
	for _, t := range tasks {
		items = append(items, *taskItem(t))
	}
	sortItems(items)
	return items, nil
}

// Upcoming returns every item the user can still act on: events from now
// on, active reminders and open tasks.
func Upcoming(db *gorm.DB, userID string, now time.Time, kinds ...models.EntityKind) ([]Item, error) {
	want := func(k models.EntityKind) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, w := range kinds {
			if w == k {
				return true
			}
		}
		return false
	}
	var items []Item
	if want(models.KindEvent) {
		var events []models.Event
		if err := db.Where("user_id = ? AND ends_at >= ?", userID, now.UTC()).Order("starts_at").Find(&events).Error; err != nil {
			return nil, fmt.Errorf("calendar: upcoming events: %w", err)
		}
		for _, e := range events {
			items = append(items, *eventItem(e))
		}
	}
	if want(models.KindReminder) {
		reminders, err := ListReminders(db, userID)
		if err != nil {
			return nil, err
		}
		for _, r := range reminders {
			items = append(items, *reminderItem(r))
		}
	}
	if want(models.KindTask) {
		tasks, err := ListOpenTasks(db, userID)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			items = append(items, *taskItem(t))
		}
	}
	sortItems(items)
	return items, nil
}

// Search ranks the user's actionable items by fuzzy title score against
// query, keeping those at or above threshold.
func Search(db *gorm.DB, userID, query string, now time.Time, threshold float64, kinds ...models.EntityKind) ([]Item, error) {
	items, err := Upcoming(db, userID, now, kinds...)
	if err != nil {
		return nil, err
	}
	matches := fuzzy.Rank(query, items, func(it Item) string { return it.Title }, threshold)
	out := make([]Item, len(matches))
	for i, m := range matches {
		out[i] = m.Item
	}
	return out, nil
}

// sortItems orders dated items by time, undated ones last.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].When, items[j].When
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
}
