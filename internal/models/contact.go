package models

// Contact is an entry in the user's roster, passed to the intent classifier
// so names in free text can be resolved.
type Contact struct {
	ID     string `gorm:"primaryKey;size:36"`
	UserID string `gorm:"size:36;not null;index"`
	Name   string `gorm:"size:128;not null"`
	Phone  string `gorm:"size:64"`
}
