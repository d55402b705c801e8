package calendar

import (
	"fmt"
	"strings"

	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

// AddContact adds a roster entry for the user.
func AddContact(db *gorm.DB, userID, name, phone string) (*models.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("calendar: contact name is required")
	}
	c := models.Contact{ID: newID(), UserID: userID, Name: name, Phone: phone}
	if err := db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("calendar: add contact: %w", err)
	}
	return &c, nil
}

// ListContacts returns the user's roster by name.
func ListContacts(db *gorm.DB, userID string) ([]models.Contact, error) {
	var cs []models.Contact
	if err := db.Where("user_id = ?", userID).Order("name").Find(&cs).Error; err != nil {
		return nil, fmt.Errorf("calendar: list contacts: %w", err)
	}
	return cs, nil
}
