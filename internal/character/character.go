// Package character stores the single character sheet.
package character

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zulandar/spellbook/internal/models"
	"github.com/zulandar/spellbook/internal/slots"
	"gorm.io/gorm"
)

// ErrLevelOutOfRange is returned when a saved level falls outside 1..20.
var ErrLevelOutOfRange = errors.New("character: level out of range")

// Character is the wire form of the character sheet.
type Character struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Subclass  string `json:"subclass"`
	Level     int    `json:"level"`
}

// Update is a save request. Level is kept raw: clients send numbers,
// numeric strings, null or nothing.
type Update struct {
	Name      string          `json:"name"`
	ClassName string          `json:"class_name"`
	Subclass  string          `json:"subclass"`
	Level     json.RawMessage `json:"level,omitempty"`
}

// FromCharacter builds an update carrying c's fields. A zero level is
// left out so the server applies its default.
func FromCharacter(c Character) Update {
	u := Update{
		Name:      c.Name,
		ClassName: c.ClassName,
		Subclass:  c.Subclass,
	}
	if c.Level != 0 {
		u.Level = json.RawMessage(strconv.Itoa(c.Level))
	}
	return u
}

// ParseLevel reads the raw level. ok is false when the value is absent,
// null, or not an integer.
func (u Update) ParseLevel() (level int, ok bool) {
	raw := strings.TrimSpace(string(u.Level))
	if raw == "" || raw == "null" {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		v = int(f)
	}
	return v, true
}

func fromModel(p models.CharacterProfile) Character {
	return Character{
		Name:      p.Name,
		ClassName: p.ClassName,
		Subclass:  p.Subclass,
		Level:     p.Level,
	}
}

// Get returns the character, creating the default level 1 row if needed.
func Get(db *gorm.DB) (*Character, error) {
	var p models.CharacterProfile
	err := db.Where("id = ?", models.CharacterProfileID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.CharacterProfile{ID: models.CharacterProfileID, Level: slots.MinLevel}
		if err := db.Create(&p).Error; err != nil {
			return nil, fmt.Errorf("character: create default: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("character: get: %w", err)
	}
	c := fromModel(p)
	return &c, nil
}

// Save overwrites the character. A missing or unparsable level is stored
// as 1. Levels outside 1..20 are rejected.
func Save(db *gorm.DB, u Update) (*Character, error) {
	level, ok := u.ParseLevel()
	if !ok {
		level = slots.MinLevel
	}
	if level < slots.MinLevel || level > slots.MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrLevelOutOfRange, level)
	}

	if _, err := Get(db); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":       u.Name,
		"class_name": u.ClassName,
		"subclass":   u.Subclass,
		"level":      level,
	}
	if err := db.Model(&models.CharacterProfile{}).Where("id = ?", models.CharacterProfileID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("character: save: %w", err)
	}
	return Get(db)
}

// Slots computes the slot progression for the character.
func (c Character) Slots() (slots.Progression, error) {
	return slots.Compute(c.ClassName, c.Level)
}
