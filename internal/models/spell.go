package models

import "time"

// Spell is a catalog entry. Player-tracked flags live in SpellStatus.
type Spell struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:191;not null;index"`
	Level         int    `gorm:"default:0;index"`
	School        string `gorm:"size:64"`
	Ritual        bool   `gorm:"default:false"`
	Concentration bool   `gorm:"default:false"`
	CastingTime   string `gorm:"size:128"`
	Range         string `gorm:"column:spell_range;size:128"`
	Components    string `gorm:"size:255"`
	Material      string `gorm:"type:text"`
	Duration      string `gorm:"size:128"`
	Classes       string `gorm:"size:255"`
	Description   string `gorm:"type:text"`
	HigherLevel   string `gorm:"type:text"`
	Source        string `gorm:"size:64"`
	URL           string `gorm:"size:191;uniqueIndex"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Status *SpellStatus `gorm:"foreignKey:SpellID"`
}

// SpellStatus records the known/prepared/favorite marks for one spell.
type SpellStatus struct {
	SpellID   uint `gorm:"primaryKey"`
	Known     bool `gorm:"default:false"`
	Prepared  bool `gorm:"default:false"`
	Favorite  bool `gorm:"default:false"`
	UpdatedAt time.Time
}
