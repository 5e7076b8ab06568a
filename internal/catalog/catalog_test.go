package catalog

import (
	"errors"
	"testing"

	"github.com/zulandar/spellbook/internal/models"
	"github.com/zulandar/spellbook/internal/testutil"
)

func names(spells []Spell) []string {
	out := make([]string, len(spells))
	for i, s := range spells {
		out[i] = s.Name
	}
	return out
}

func equalNames(got []Spell, want ...string) bool {
	n := names(got)
	if len(n) != len(want) {
		return false
	}
	for i := range n {
		if n[i] != want[i] {
			return false
		}
	}
	return true
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestList_NoFilters(t *testing.T) {
	gdb := testutil.OpenDB(t)
	testutil.SeedSpells(t, gdb, testutil.SampleSpells()...)

	got, err := List(gdb, Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Benedizione", "Individuazione del Magico", "Luce", "Palla di Fuoco", "Scudo"}
	if !equalNames(got, want...) {
		t.Errorf("List = %v, want %v", names(got), want)
	}
	for _, s := range got {
		if s.Known || s.Prepared || s.Favorite {
			t.Errorf("%s: flags should default to false", s.Name)
		}
	}
}

func TestList_Filters(t *testing.T) {
	gdb := testutil.OpenDB(t)
	testutil.SeedSpells(t, gdb, testutil.SampleSpells()...)

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"query", Filters{Query: "Pal"}, []string{"Palla di Fuoco"}},
		{"cantrips", Filters{Level: intPtr(0)}, []string{"Luce"}},
		{"level 1", Filters{Level: intPtr(1)}, []string{"Benedizione", "Individuazione del Magico", "Scudo"}},
		{"class", Filters{Class: "paladino"}, []string{"Benedizione", "Individuazione del Magico"}},
		{"class mixed case", Filters{Class: "PALADINO"}, []string{"Benedizione", "Individuazione del Magico"}},
		{"school", Filters{School: "invoc"}, []string{"Luce", "Palla di Fuoco"}},
		{"ritual", Filters{Ritual: boolPtr(true)}, []string{"Individuazione del Magico"}},
		{"not concentration", Filters{Concentration: boolPtr(false)}, []string{"Luce", "Palla di Fuoco", "Scudo"}},
		{"material", Filters{Component: "M"}, []string{"Benedizione", "Luce", "Palla di Fuoco"}},
		{"combined", Filters{Level: intPtr(1), Component: "M"}, []string{"Benedizione"}},
		{"no match", Filters{Query: "Desiderio"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := List(gdb, tt.filters)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !equalNames(got, tt.want...) {
				t.Errorf("List = %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	gdb := testutil.OpenDB(t)
	spells := testutil.SeedSpells(t, gdb, testutil.SampleSpells()...)
	scudo := spells[4]

	if err := SetStatus(gdb, StatusUpdate{SpellID: scudo.ID, Known: true, Prepared: true}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err := Get(gdb, scudo.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Known || !got.Prepared || got.Favorite {
		t.Errorf("flags = %v/%v/%v, want true/true/false", got.Known, got.Prepared, got.Favorite)
	}

	// A second update overwrites all three flags.
	if err := SetStatus(gdb, StatusUpdate{SpellID: scudo.ID, Favorite: true}); err != nil {
		t.Fatalf("SetStatus overwrite: %v", err)
	}
	got, _ = Get(gdb, scudo.ID)
	if got.Known || got.Prepared || !got.Favorite {
		t.Errorf("flags = %v/%v/%v, want false/false/true", got.Known, got.Prepared, got.Favorite)
	}

	var count int64
	gdb.Model(&models.SpellStatus{}).Count(&count)
	if count != 1 {
		t.Errorf("status rows = %d, want 1", count)
	}

	known, err := List(gdb, Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, s := range known {
		if s.ID != scudo.ID && (s.Known || s.Prepared || s.Favorite) {
			t.Errorf("%s picked up flags from another spell", s.Name)
		}
	}
}

func TestSetStatus_Errors(t *testing.T) {
	gdb := testutil.OpenDB(t)
	testutil.SeedSpells(t, gdb, testutil.SampleSpells()...)

	if err := SetStatus(gdb, StatusUpdate{Known: true}); !errors.Is(err, ErrMissingSpellID) {
		t.Errorf("missing id: err = %v, want ErrMissingSpellID", err)
	}
	if err := SetStatus(gdb, StatusUpdate{SpellID: 9999}); !errors.Is(err, ErrSpellNotFound) {
		t.Errorf("unknown id: err = %v, want ErrSpellNotFound", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	gdb := testutil.OpenDB(t)
	_, err := Get(gdb, 42)
	if !errors.Is(err, ErrSpellNotFound) {
		t.Errorf("err = %v, want ErrSpellNotFound", err)
	}
}

func TestUpsert(t *testing.T) {
	gdb := testutil.OpenDB(t)

	batch := []Spell{
		{Name: "Dardo Incantato", Level: 1, School: "Invocazione", Range: "36 metri", URL: "https://example.test/dardo"},
		{Name: "Mano Magica", Level: 0, School: "Evocazione", URL: "https://example.test/mano"},
	}
	n, err := Upsert(gdb, batch)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 2 {
		t.Errorf("Upsert = %d, want 2", n)
	}

	all, _ := List(gdb, Filters{})
	dardo := all[0]
	if dardo.Range != "36 metri" {
		t.Errorf("Range = %q, want %q", dardo.Range, "36 metri")
	}
	if err := SetStatus(gdb, StatusUpdate{SpellID: dardo.ID, Known: true}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	// Re-import with changed text keeps the row and its status.
	batch[0].Range = "45 metri"
	if _, err := Upsert(gdb, batch[:1]); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	total, err := Count(gdb)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 2 {
		t.Errorf("Count = %d, want 2", total)
	}
	got, err := Get(gdb, dardo.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Range != "45 metri" {
		t.Errorf("Range after re-import = %q, want %q", got.Range, "45 metri")
	}
	if !got.Known {
		t.Error("re-import should keep the known flag")
	}
}

func TestUpsert_Validation(t *testing.T) {
	gdb := testutil.OpenDB(t)
	if _, err := Upsert(gdb, []Spell{{Name: "Senza URL"}}); err == nil {
		t.Error("expected error for missing url")
	}
	if _, err := Upsert(gdb, []Spell{{URL: "https://example.test/x"}}); err == nil {
		t.Error("expected error for missing name")
	}
	if n, err := Upsert(gdb, nil); err != nil || n != 0 {
		t.Errorf("Upsert(nil) = %d, %v", n, err)
	}
}

func TestFromModel_NilStatus(t *testing.T) {
	s := FromModel(models.Spell{ID: 7, Name: "Luce", Level: 0})
	if s.Known || s.Prepared || s.Favorite {
		t.Error("nil status should read as false flags")
	}
	if !s.IsCantrip() {
		t.Error("level 0 should be a cantrip")
	}
	s = FromModel(models.Spell{ID: 7, Status: &models.SpellStatus{SpellID: 7, Prepared: true}})
	if !s.Prepared {
		t.Error("Prepared should carry over")
	}
}
