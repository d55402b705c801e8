package calendar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

// CreateUser registers a user for phone.
func CreateUser(db *gorm.DB, phone, name, pinHash, timezone string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if phone == "" {
		return nil, fmt.Errorf("calendar: phone is required")
	}
	if name == "" {
		return nil, fmt.Errorf("calendar: name is required")
	}
	u := models.User{ID: newID(), Phone: phone, Name: name, PinHash: pinHash, Timezone: timezone}
	if err := db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("calendar: create user: %w", err)
	}
	return &u, nil
}

// UserByPhone returns the user registered for phone.
func UserByPhone(db *gorm.DB, phone string) (*models.User, error) {
	var u models.User
	if err := db.Where("phone = ?", phone).First(&u).Error; err != nil {
		return nil, notFound(err, "user", phone)
	}
	return &u, nil
}

// GetUser returns a user by id.
func GetUser(db *gorm.DB, id string) (*models.User, error) {
	var u models.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

// ListUsers returns every registered user.
func ListUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := db.Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("calendar: list users: %w", err)
	}
	return users, nil
}

// PhoneRegistered reports whether phone belongs to a user.
func PhoneRegistered(db *gorm.DB, phone string) (bool, error) {
	_, err := UserByPhone(db, phone)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
