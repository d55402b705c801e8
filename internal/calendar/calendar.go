// Package calendar provides ownership-scoped persistence for users, events,
// reminders, tasks and contacts. Every read and mutation of an owned entity
// takes the owner's user id; an id owned by someone else is indistinguishable
// from a missing one.
package calendar

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an entity does not exist for the given owner.
var ErrNotFound = errors.New("calendar: not found")

func newID() string {
	return uuid.NewString()
}

// notFound maps gorm's missing-record error onto ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return fmt.Errorf("calendar: get %s %s: %w", what, id, err)
}

// scopedUpdate applies updates to the row identified by (id, userID).
func scopedUpdate(db *gorm.DB, model any, what, userID, id string, updates map[string]interface{}) error {
	result := db.Model(model).Where("id = ? AND user_id = ?", id, userID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("calendar: update %s %s: %w", what, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return nil
}

// scopedDelete removes the row identified by (id, userID).
func scopedDelete(db *gorm.DB, model any, what, userID, id string) error {
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(model)
	if result.Error != nil {
		return fmt.Errorf("calendar: delete %s %s: %w", what, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return nil
}
