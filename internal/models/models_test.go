package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestSpell_Fields(t *testing.T) {
	typ := reflect.TypeOf(Spell{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Name", "index")
	assertGormTag(t, typ, "Level", "default:0")
	assertGormTag(t, typ, "Range", "column:spell_range")
	assertGormTag(t, typ, "Description", "type:text")
	assertGormTag(t, typ, "HigherLevel", "type:text")
	assertGormTag(t, typ, "URL", "uniqueIndex")

	assertFieldType(t, typ, "ID", "uint")
	assertFieldType(t, typ, "Level", "int")
	assertFieldType(t, typ, "Ritual", "bool")
	assertFieldType(t, typ, "Concentration", "bool")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestSpell_StatusRelation(t *testing.T) {
	typ := reflect.TypeOf(Spell{})
	assertGormTag(t, typ, "Status", "foreignKey:SpellID")
	assertFieldType(t, typ, "Status", "*models.SpellStatus")
}

func TestSpellStatus_Fields(t *testing.T) {
	typ := reflect.TypeOf(SpellStatus{})

	assertGormTag(t, typ, "SpellID", "primaryKey")
	assertGormTag(t, typ, "Known", "default:false")
	assertGormTag(t, typ, "Prepared", "default:false")
	assertGormTag(t, typ, "Favorite", "default:false")

	assertFieldType(t, typ, "SpellID", "uint")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestCharacterProfile_Fields(t *testing.T) {
	typ := reflect.TypeOf(CharacterProfile{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Level", "not null")
	assertGormTag(t, typ, "Level", "default:1")
	assertGormTag(t, typ, "ClassName", "size:64")

	assertFieldType(t, typ, "Level", "int")
	assertFieldType(t, typ, "Name", "string")
}

func TestCharacterProfileID(t *testing.T) {
	if CharacterProfileID != 1 {
		t.Errorf("CharacterProfileID = %d, want 1", CharacterProfileID)
	}
}
