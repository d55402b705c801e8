package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

// EventOpts holds parameters for creating an event.
type EventOpts struct {
	UserID   string
	Title    string
	StartsAt time.Time
	EndsAt   time.Time // defaults to StartsAt + models.DefaultEventDuration
	Location string
	Notes    string
}

// CreateEvent stores a new event.
func CreateEvent(db *gorm.DB, opts EventOpts) (*models.Event, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if opts.UserID == "" {
		return nil, fmt.Errorf("calendar: user id is required")
	}
	if opts.Title == "" {
		return nil, fmt.Errorf("calendar: title is required")
	}
	if opts.StartsAt.IsZero() {
		return nil, fmt.Errorf("calendar: start time is required")
	}
	if opts.EndsAt.IsZero() {
		opts.EndsAt = opts.StartsAt.Add(models.DefaultEventDuration)
	}
	if !opts.EndsAt.After(opts.StartsAt) {
		return nil, fmt.Errorf("calendar: event must end after it starts")
	}
	e := models.Event{
		ID:       newID(),
		UserID:   opts.UserID,
		Title:    opts.Title,
		StartsAt: opts.StartsAt.UTC(),
		EndsAt:   opts.EndsAt.UTC(),
		Location: opts.Location,
		Notes:    opts.Notes,
	}
	if err := db.Create(&e).Error; err != nil {
		return nil, fmt.Errorf("calendar: create event: %w", err)
	}
	return &e, nil
}

// GetEvent returns the user's event.
func GetEvent(db *gorm.DB, userID, id string) (*models.Event, error) {
	var e models.Event
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&e).Error; err != nil {
		return nil, notFound(err, "event", id)
	}
	return &e, nil
}

// ListEvents returns the user's events starting in [from, to), earliest first.
func ListEvents(db *gorm.DB, userID string, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := db.Where("user_id = ? AND starts_at >= ? AND starts_at < ?", userID, from.UTC(), to.UTC()).
		Order("starts_at").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}
	return events, nil
}

// Conflicts returns the user's events overlapping [start, end), excluding
// excludeID when set.
func Conflicts(db *gorm.DB, userID string, start, end time.Time, excludeID string) ([]models.Event, error) {
	q := db.Where("user_id = ? AND starts_at < ? AND ends_at > ?", userID, end.UTC(), start.UTC())
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var events []models.Event
	if err := q.Order("starts_at").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("calendar: conflicts: %w", err)
	}
	return events, nil
}

// RescheduleEvent moves the event to start, keeping its duration.
func RescheduleEvent(db *gorm.DB, userID, id string, start time.Time) (*models.Event, error) {
	e, err := GetEvent(db, userID, id)
	if err != nil {
		return nil, err
	}
	start = start.UTC()
	dur := e.EndsAt.Sub(e.StartsAt)
	if dur <= 0 {
		dur = models.DefaultEventDuration
	}
	if err := scopedUpdate(db, &models.Event{}, "event", userID, id, map[string]interface{}{
		"starts_at": start,
		"ends_at":   start.Add(dur),
	}); err != nil {
		return nil, err
	}
	e.StartsAt, e.EndsAt = start, start.Add(dur)
	return e, nil
}

// RenameEvent changes the event title.
func RenameEvent(db *gorm.DB, userID, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("calendar: title is required")
	}
	return scopedUpdate(db, &models.Event{}, "event", userID, id, map[string]interface{}{"title": title})
}

// DeleteEvent removes the user's event.
func DeleteEvent(db *gorm.DB, userID, id string) error {
	return scopedDelete(db, &models.Event{}, "event", userID, id)
}
