package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

// ReminderOpts holds parameters for creating a reminder.
type ReminderOpts struct {
	UserID     string
	Title      string
	RemindAt   time.Time
	Recurrence models.Recurrence // defaults to none
	ParentID   string
}

// CreateReminder stores a new active reminder.
func CreateReminder(db *gorm.DB, opts ReminderOpts) (*models.Reminder, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if opts.UserID == "" {
		return nil, fmt.Errorf("calendar: user id is required")
	}
	if opts.Title == "" {
		return nil, fmt.Errorf("calendar: title is required")
	}
	if opts.RemindAt.IsZero() {
		return nil, fmt.Errorf("calendar: reminder time is required")
	}
	if opts.Recurrence == "" {
		opts.Recurrence = models.RecurNone
	}
	if !opts.Recurrence.Valid() {
		return nil, fmt.Errorf("calendar: unknown recurrence %q", opts.Recurrence)
	}
	r := models.Reminder{
		ID:         newID(),
		UserID:     opts.UserID,
		Title:      opts.Title,
		RemindAt:   opts.RemindAt.UTC(),
		Recurrence: opts.Recurrence,
		Active:     true,
		ParentID:   opts.ParentID,
	}
	if err := db.Create(&r).Error; err != nil {
		return nil, fmt.Errorf("calendar: create reminder: %w", err)
	}
	return &r, nil
}

// GetReminder returns the user's reminder.
func GetReminder(db *gorm.DB, userID, id string) (*models.Reminder, error) {
	var r models.Reminder
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		return nil, notFound(err, "reminder", id)
	}
	return &r, nil
}

// ListReminders returns the user's active reminders, soonest first.
func ListReminders(db *gorm.DB, userID string) ([]models.Reminder, error) {
	var rs []models.Reminder
	if err := db.Where("user_id = ? AND active = ?", userID, true).Order("remind_at").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("calendar: list reminders: %w", err)
	}
	return rs, nil
}

// RemindersBetween returns the user's active reminders due in [from, to).
func RemindersBetween(db *gorm.DB, userID string, from, to time.Time) ([]models.Reminder, error) {
	var rs []models.Reminder
	err := db.Where("user_id = ? AND active = ? AND remind_at >= ? AND remind_at < ?", userID, true, from.UTC(), to.UTC()).
		Order("remind_at").Find(&rs).Error
	if err != nil {
		return nil, fmt.Errorf("calendar: list reminders: %w", err)
	}
	return rs, nil
}

// ActiveReminders returns every active reminder of every user, for
// rescheduling on start.
func ActiveReminders(db *gorm.DB) ([]models.Reminder, error) {
	var rs []models.Reminder
	if err := db.Where("active = ?", true).Order("remind_at").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("calendar: active reminders: %w", err)
	}
	return rs, nil
}

// SetReminderAnchor moves the reminder's fire time (the recurrence anchor
// for recurring reminders).
func SetReminderAnchor(db *gorm.DB, userID, id string, at time.Time) error {
	return scopedUpdate(db, &models.Reminder{}, "reminder", userID, id, map[string]interface{}{"remind_at": at.UTC()})
}

// RenameReminder changes the reminder title.
func RenameReminder(db *gorm.DB, userID, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("calendar: title is required")
	}
	return scopedUpdate(db, &models.Reminder{}, "reminder", userID, id, map[string]interface{}{"title": title})
}

// DeactivateReminder marks a fired one-shot reminder inactive.
func DeactivateReminder(db *gorm.DB, userID, id string) error {
	return scopedUpdate(db, &models.Reminder{}, "reminder", userID, id, map[string]interface{}{"active": false})
}

// DeleteReminder removes the user's reminder.
func DeleteReminder(db *gorm.DB, userID, id string) error {
	return scopedDelete(db, &models.Reminder{}, "reminder", userID, id)
}
