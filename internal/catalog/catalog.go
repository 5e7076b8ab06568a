// Package catalog provides spell catalog queries and the player's
// per-spell status marks.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/spellbook/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrMissingSpellID is returned when a status update names no spell.
	ErrMissingSpellID = errors.New("catalog: missing spell id")
	// ErrSpellNotFound is returned for spell IDs not in the catalog.
	ErrSpellNotFound = errors.New("catalog: spell not found")
)

// Spell is a catalog entry joined with its status flags, in wire form.
type Spell struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Level         int    `json:"level"`
	School        string `json:"school"`
	Ritual        bool   `json:"ritual"`
	Concentration bool   `json:"concentration"`
	CastingTime   string `json:"casting_time"`
	Range         string `json:"range"`
	Components    string `json:"components"`
	Material      string `json:"material"`
	Duration      string `json:"duration"`
	Classes       string `json:"classes"`
	Description   string `json:"description"`
	HigherLevel   string `json:"higher_level"`
	Source        string `json:"source,omitempty"`
	URL           string `json:"url"`
	Known         bool   `json:"known"`
	Prepared      bool   `json:"prepared"`
	Favorite      bool   `json:"favorite"`
}

// StatusUpdate overwrites all three flags of one spell.
type StatusUpdate struct {
	SpellID  uint `json:"spell_id"`
	Known    bool `json:"known"`
	Prepared bool `json:"prepared"`
	Favorite bool `json:"favorite"`
}

// FromModel converts a stored spell. A nil status reads as all flags false.
func FromModel(m models.Spell) Spell {
	s := Spell{
		ID:            m.ID,
		Name:          m.Name,
		Level:         m.Level,
		School:        m.School,
		Ritual:        m.Ritual,
		Concentration: m.Concentration,
		CastingTime:   m.CastingTime,
		Range:         m.Range,
		Components:    m.Components,
		Material:      m.Material,
		Duration:      m.Duration,
		Classes:       m.Classes,
		Description:   m.Description,
		HigherLevel:   m.HigherLevel,
		Source:        m.Source,
		URL:           m.URL,
	}
	if m.Status != nil {
		s.Known = m.Status.Known
		s.Prepared = m.Status.Prepared
		s.Favorite = m.Status.Favorite
	}
	return s
}

// Model returns the static part of the spell as a storable row.
func (s Spell) Model() models.Spell {
	return models.Spell{
		ID:            s.ID,
		Name:          s.Name,
		Level:         s.Level,
		School:        s.School,
		Ritual:        s.Ritual,
		Concentration: s.Concentration,
		CastingTime:   s.CastingTime,
		Range:         s.Range,
		Components:    s.Components,
		Material:      s.Material,
		Duration:      s.Duration,
		Classes:       s.Classes,
		Description:   s.Description,
		HigherLevel:   s.HigherLevel,
		Source:        s.Source,
		URL:           s.URL,
	}
}

// IsCantrip reports whether the spell is level 0.
func (s Spell) IsCantrip() bool { return s.Level == 0 }

// List returns spells matching the filters with their status flags,
// ordered by name.
func List(db *gorm.DB, filters Filters) ([]Spell, error) {
	q := db.Model(&models.Spell{}).Joins("Status")

	if filters.Query != "" {
		q = q.Where("spells.name LIKE ?", "%"+filters.Query+"%")
	}
	if filters.Level != nil {
		q = q.Where("spells.level = ?", *filters.Level)
	}
	if filters.Class != "" {
		q = q.Where("LOWER(spells.classes) LIKE ?", "%"+strings.ToLower(filters.Class)+"%")
	}
	if filters.School != "" {
		q = q.Where("LOWER(spells.school) LIKE ?", "%"+strings.ToLower(filters.School)+"%")
	}
	if filters.Ritual != nil {
		q = q.Where("spells.ritual = ?", *filters.Ritual)
	}
	if filters.Concentration != nil {
		q = q.Where("spells.concentration = ?", *filters.Concentration)
	}
	if filters.Component != "" {
		q = q.Where("spells.components LIKE ?", "%"+filters.Component+"%")
	}

	var rows []models.Spell
	if err := q.Order("spells.name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}

	out := make([]Spell, len(rows))
	for i, r := range rows {
		out[i] = FromModel(r)
	}
	return out, nil
}

// Get retrieves one spell with its flags.
func Get(db *gorm.DB, id uint) (*Spell, error) {
	var m models.Spell
	if err := db.Joins("Status").Where("spells.id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrSpellNotFound, id)
		}
		return nil, fmt.Errorf("catalog: get %d: %w", id, err)
	}
	s := FromModel(m)
	return &s, nil
}

// SetStatus stores the three flags of a spell, replacing earlier values.
func SetStatus(db *gorm.DB, u StatusUpdate) error {
	if u.SpellID == 0 {
		return ErrMissingSpellID
	}

	var count int64
	if err := db.Model(&models.Spell{}).Where("id = ?", u.SpellID).Count(&count).Error; err != nil {
		return fmt.Errorf("catalog: check spell %d: %w", u.SpellID, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %d", ErrSpellNotFound, u.SpellID)
	}

	status := models.SpellStatus{
		SpellID:  u.SpellID,
		Known:    u.Known,
		Prepared: u.Prepared,
		Favorite: u.Favorite,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "spell_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"known", "prepared", "favorite", "updated_at"}),
	}).Create(&status).Error
	if err != nil {
		return fmt.Errorf("catalog: set status %d: %w", u.SpellID, err)
	}
	return nil
}

// upsertColumns are overwritten when an imported spell's URL already exists.
var upsertColumns = []string{
	"name", "level", "school", "ritual", "concentration", "casting_time",
	"spell_range", "components", "material", "duration", "classes",
	"description", "higher_level", "source", "updated_at",
}

// Upsert inserts or refreshes spells keyed by URL. Status flags are
// untouched. It returns the number of spells written.
func Upsert(db *gorm.DB, spells []Spell) (int, error) {
	if len(spells) == 0 {
		return 0, nil
	}
	rows := make([]models.Spell, 0, len(spells))
	for _, s := range spells {
		if s.URL == "" {
			return 0, fmt.Errorf("catalog: upsert %q: url is required", s.Name)
		}
		if s.Name == "" {
			return 0, fmt.Errorf("catalog: upsert %s: name is required", s.URL)
		}
		m := s.Model()
		m.ID = 0
		rows = append(rows, m)
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("catalog: upsert: %w", err)
	}
	return len(rows), nil
}

// Count returns the number of spells in the catalog.
func Count(db *gorm.DB) (int64, error) {
	var n int64
	if err := db.Model(&models.Spell{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}
