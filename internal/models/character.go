package models

import "time"

// CharacterProfileID is the primary key of the single character row.
const CharacterProfileID = 1

// CharacterProfile is the singleton character sheet.
type CharacterProfile struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128"`
	ClassName string `gorm:"size:64"`
	Subclass  string `gorm:"size:128"`
	Level     int    `gorm:"not null;default:1"`
	UpdatedAt time.Time
}
