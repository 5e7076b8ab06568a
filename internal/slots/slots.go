// Package slots computes spell-slot availability from static progression
// tables. It is a pure lookup: no rules beyond class and level apply.
package slots

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CasterType selects one of the progression tables.
type CasterType string

// Caster types.
const (
	Full CasterType = "full"
	Half CasterType = "half"
	Pact CasterType = "pact"
	None CasterType = "none"
)

// Level bounds.
const (
	MinLevel      = 1
	MaxLevel      = 20
	MaxSpellLevel = 9
	maxPactLevel  = 5
)

// ErrLevelOutOfRange is returned for character levels outside 1..20.
var ErrLevelOutOfRange = errors.New("slots: level out of range")

// fullCaster[level-1] lists slots for spell levels 1st.. in order.
var fullCaster = [MaxLevel][]int{
	{2},
	{3},
	{4, 2},
	{4, 3},
	{4, 3, 2},
	{4, 3, 3},
	{4, 3, 3, 1},
	{4, 3, 3, 2},
	{4, 3, 3, 3, 1},
	{4, 3, 3, 3, 2},
	{4, 3, 3, 3, 2, 1},
	{4, 3, 3, 3, 2, 1},
	{4, 3, 3, 3, 2, 1, 1},
	{4, 3, 3, 3, 2, 1, 1},
	{4, 3, 3, 3, 2, 1, 1, 1},
	{4, 3, 3, 3, 2, 1, 1, 1},
	{4, 3, 3, 3, 3, 1, 1, 1, 1},
	{4, 3, 3, 3, 3, 1, 1, 1, 1},
	{4, 3, 3, 3, 3, 2, 1, 1, 1},
	{4, 3, 3, 3, 3, 2, 2, 1, 1},
}

var halfCaster = [MaxLevel][]int{
	{0},
	{2},
	{3},
	{3},
	{4, 2},
	{4, 2},
	{4, 3},
	{4, 3},
	{4, 3, 2},
	{4, 3, 2},
	{4, 3, 3},
	{4, 3, 3},
	{4, 3, 3, 1},
	{4, 3, 3, 1},
	{4, 3, 3, 2},
	{4, 3, 3, 2},
	{4, 3, 3, 3, 1},
	{4, 3, 3, 3, 1},
	{4, 3, 3, 3, 2},
	{4, 3, 3, 3, 2},
}

var pactCaster = [MaxLevel]int{
	1, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	3, 3, 3, 3, 3, 3, 4, 4, 4, 4,
}

// casters maps canonical class IDs to their progression.
var casters = map[string]CasterType{
	"bard":      Full,
	"cleric":    Full,
	"druid":     Full,
	"sorcerer":  Full,
	"wizard":    Full,
	"artificer": Half,
	"paladin":   Half,
	"ranger":    Half,
	"warlock":   Pact,
}

// aliases maps the Italian class names used by the compendium catalog.
var aliases = map[string]string{
	"bardo":    "bard",
	"chierico": "cleric",
	"druido":   "druid",
	"stregone": "sorcerer",
	"mago":     "wizard",
	"artefice": "artificer",
	"paladino": "paladin",
}

// Progression is the slot availability for one class at one level.
type Progression struct {
	Class     string             `json:"class"`
	Caster    CasterType         `json:"caster"`
	Level     int                `json:"level"`
	Slots     [MaxSpellLevel]int `json:"slots"`
	PactSlots int                `json:"pact_slots,omitempty"`
	PactLevel int                `json:"pact_level,omitempty"`
}

// ClassInfo describes one registered class.
type ClassInfo struct {
	ID      string     `json:"id"`
	Caster  CasterType `json:"caster"`
	Aliases []string   `json:"aliases,omitempty"`
}

// Row is one line of the slot panel.
type Row struct {
	SpellLevel int  `json:"spell_level"`
	Count      int  `json:"count"`
	Pact       bool `json:"pact,omitempty"`
}

// Normalize returns the canonical class ID for name, resolving aliases.
// Unknown names are returned trimmed and lower-cased.
func Normalize(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	if canon, ok := aliases[id]; ok {
		return canon
	}
	return id
}

// Lookup reports the caster type of a class name or alias.
func Lookup(name string) (string, CasterType, bool) {
	id := Normalize(name)
	ct, ok := casters[id]
	if !ok {
		return id, None, false
	}
	return id, ct, true
}

// PactSlotLevel is the spell level of every pact slot at a warlock level.
func PactSlotLevel(level int) int {
	l := (level + 1) / 2
	if l > maxPactLevel {
		return maxPactLevel
	}
	return l
}

// Compute returns the slot progression for class at level. A level of 0
// means "unset" and is read as 1. Classes without spellcasting get a
// progression with Caster None and no slots.
func Compute(class string, level int) (Progression, error) {
	if level == 0 {
		level = MinLevel
	}
	if level < MinLevel || level > MaxLevel {
		return Progression{}, fmt.Errorf("%w: %d", ErrLevelOutOfRange, level)
	}

	id, ct, _ := Lookup(class)
	p := Progression{Class: id, Caster: ct, Level: level}

	switch ct {
	case Full:
		copy(p.Slots[:], fullCaster[level-1])
	case Half:
		copy(p.Slots[:], halfCaster[level-1])
	case Pact:
		p.PactSlots = pactCaster[level-1]
		p.PactLevel = PactSlotLevel(level)
		p.Slots[p.PactLevel-1] = p.PactSlots
	}
	return p, nil
}

// HasSlots reports whether the class casts spells at all.
func (p Progression) HasSlots() bool {
	return p.Caster != None && p.Caster != ""
}

// Total is the number of slots across all spell levels.
func (p Progression) Total() int {
	n := 0
	for _, c := range p.Slots {
		n += c
	}
	return n
}

// Highest is the highest spell level with at least one slot, or 0.
func (p Progression) Highest() int {
	for i := MaxSpellLevel - 1; i >= 0; i-- {
		if p.Slots[i] > 0 {
			return i + 1
		}
	}
	return 0
}

// Rows lays the progression out for display: a single pact row for
// warlocks, nine rows otherwise, none for non-casters.
func (p Progression) Rows() []Row {
	switch p.Caster {
	case Pact:
		return []Row{{SpellLevel: p.PactLevel, Count: p.PactSlots, Pact: true}}
	case Full, Half:
		rows := make([]Row, MaxSpellLevel)
		for i := range rows {
			rows[i] = Row{SpellLevel: i + 1, Count: p.Slots[i]}
		}
		return rows
	}
	return nil
}

// Classes lists registered classes sorted by ID.
func Classes() []ClassInfo {
	byClass := make(map[string][]string)
	for alias, id := range aliases {
		byClass[id] = append(byClass[id], alias)
	}

	out := make([]ClassInfo, 0, len(casters))
	for id, ct := range casters {
		a := byClass[id]
		sort.Strings(a)
		out = append(out, ClassInfo{ID: id, Caster: ct, Aliases: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
