package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

// CreateTask stores a new open task. due may be nil.
func CreateTask(db *gorm.DB, userID, title string, due *time.Time) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if userID == "" {
		return nil, fmt.Errorf("calendar: user id is required")
	}
	if title == "" {
		return nil, fmt.Errorf("calendar: title is required")
	}
	if due != nil {
		utc := due.UTC()
		due = &utc
	}
	t := models.Task{ID: newID(), UserID: userID, Title: title, DueAt: due}
	if err := db.Create(&t).Error; err != nil {
		return nil, fmt.Errorf("calendar: create task: %w", err)
	}
	return &t, nil
}

// GetTask returns the user's task.
func GetTask(db *gorm.DB, userID, id string) (*models.Task, error) {
	var t models.Task
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, notFound(err, "task", id)
	}
	return &t, nil
}

// ListOpenTasks returns the user's open tasks: dated ones by due date, then
// undated ones by creation.
func ListOpenTasks(db *gorm.DB, userID string) ([]models.Task, error) {
	var ts []models.Task
	err := db.Where("user_id = ? AND done = ?", userID, false).
		Order("CASE WHEN due_at IS NULL THEN 1 ELSE 0 END, due_at, created_at").Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("calendar: list tasks: %w", err)
	}
	return ts, nil
}

// TasksDueBetween returns the user's open tasks due in [from, to).
func TasksDueBetween(db *gorm.DB, userID string, from, to time.Time) ([]models.Task, error) {
	var ts []models.Task
	err := db.Where("user_id = ? AND done = ? AND due_at >= ? AND due_at < ?", userID, false, from.UTC(), to.UTC()).
		Order("due_at").Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("calendar: list tasks: %w", err)
	}
	return ts, nil
}

// CompleteTask marks the user's task done at now.
func CompleteTask(db *gorm.DB, userID, id string, now time.Time) error {
	return scopedUpdate(db, &models.Task{}, "task", userID, id, map[string]interface{}{
		"done":         true,
		"completed_at": now.UTC(),
	})
}

// SetTaskDue changes the task's due date.
func SetTaskDue(db *gorm.DB, userID, id string, due time.Time) error {
	return scopedUpdate(db, &models.Task{}, "task", userID, id, map[string]interface{}{"due_at": due.UTC()})
}

// RenameTask changes the task title.
func RenameTask(db *gorm.DB, userID, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("calendar: title is required")
	}
	return scopedUpdate(db, &models.Task{}, "task", userID, id, map[string]interface{}{"title": title})
}

// DeleteTask removes the user's task.
func DeleteTask(db *gorm.DB, userID, id string) error {
	return scopedDelete(db, &models.Task{}, "task", userID, id)
}
