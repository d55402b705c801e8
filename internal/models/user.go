package models

import "time"

// User is a registered chat user, identified by phone (or platform user id).
type User struct {
	ID        string `gorm:"primaryKey;size:36"`
	Phone     string `gorm:"size:64;not null;uniqueIndex"`
	Name      string `gorm:"size:128;not null"`
	PinHash   string `gorm:"size:128;not null"`
	Timezone  string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
