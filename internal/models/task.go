package models

import "time"

// Task is a to-do item with an optional due date.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36"`
	UserID      string     `gorm:"size:36;not null;index"`
	Title       string     `gorm:"size:256;not null"`
	DueAt       *time.Time `gorm:"index"`
	Done        bool       `gorm:"not null;default:false;index"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
