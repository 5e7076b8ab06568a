package db

import (
	"errors"
	"fmt"

	"github.com/zulandar/spellbook/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Spell{},
		&models.SpellStatus{},
		&models.CharacterProfile{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedCharacter makes sure the singleton character row exists.
func SeedCharacter(db *gorm.DB) error {
	var profile models.CharacterProfile
	err := db.Where("id = ?", models.CharacterProfileID).First(&profile).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: check character: %w", err)
	}
	profile = models.CharacterProfile{ID: models.CharacterProfileID, Level: 1}
	if err := db.Create(&profile).Error; err != nil {
		return fmt.Errorf("db: seed character: %w", err)
	}
	return nil
}

// Init migrates all tables and seeds the character row.
func Init(db *gorm.DB) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}
	return SeedCharacter(db)
}

// Reset drops every table and re-initializes the schema.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return Init(db)
}
