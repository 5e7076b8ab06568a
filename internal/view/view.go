// Package view renders catalog, character and slot views as text tables.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/character"
	"github.com/zulandar/spellbook/internal/slots"
	"golang.org/x/text/message"
)

const nameWidth = 40

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// LevelLabel is the localized spell-level label: a cantrip name for 0,
// an ordinal otherwise.
func LevelLabel(p *message.Printer, level int) string {
	if level < 0 || level > slots.MaxSpellLevel {
		return fmt.Sprint(level)
	}
	return p.Sprintf(fmt.Sprintf("level.%d", level))
}

// Marks renders the three flags as a fixed-width K/P/F string.
func Marks(s catalog.Spell) string {
	b := []byte("---")
	if s.Known {
		b[0] = 'K'
	}
	if s.Prepared {
		b[1] = 'P'
	}
	if s.Favorite {
		b[2] = 'F'
	}
	return string(b)
}

// Tags lists the ritual and concentration tags of a spell.
func Tags(p *message.Printer, s catalog.Spell) string {
	var tags []string
	if s.Ritual {
		tags = append(tags, p.Sprintf("tag.ritual"))
	}
	if s.Concentration {
		tags = append(tags, p.Sprintf("tag.concentration"))
	}
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

func header(p *message.Printer, keys ...string) string {
	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = strings.ToUpper(p.Sprintf(k))
	}
	return strings.Join(cols, "\t")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// SpellTable writes the spell list in the order given.
func SpellTable(out io.Writer, p *message.Printer, spells []catalog.Spell) error {
	if len(spells) == 0 {
		_, err := fmt.Fprintln(out, p.Sprintf("spells.empty"))
		return err
	}
	w := newTable(out)
	fmt.Fprintln(w, header(p, "table.id", "table.name", "table.level", "table.school", "table.components", "table.tags", "table.flags"))
	for _, s := range spells {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, Truncate(s.Name, nameWidth), LevelLabel(p, s.Level), orDash(s.School),
			orDash(componentLetters(s.Components)), Tags(p, s), Marks(s))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, p.Sprintf("spells.count", len(spells)))
	return err
}

// componentLetters keeps the V/S/M letters and drops the material text.
func componentLetters(components string) string {
	if i := strings.Index(components, "("); i >= 0 {
		components = components[:i]
	}
	return strings.TrimRight(strings.TrimSpace(components), ",")
}

// KnownList writes the known spells as "name  level · school" lines.
func KnownList(out io.Writer, p *message.Printer, spells []catalog.Spell) error {
	fmt.Fprintln(out, p.Sprintf("known.title"))
	n := 0
	w := newTable(out)
	for _, s := range spells {
		if !s.Known {
			continue
		}
		n++
		fmt.Fprintf(w, "  %s\t%s · %s\n", s.Name, LevelLabel(p, s.Level), s.School)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if n == 0 {
		_, err := fmt.Fprintln(out, "  "+p.Sprintf("known.empty"))
		return err
	}
	return nil
}

// Boxes draws count empty slot boxes.
func Boxes(count int) string {
	if count <= 0 {
		return "-"
	}
	return strings.TrimSpace(strings.Repeat("[ ] ", count))
}

// SlotPanel writes the slot progression: one pact row for warlocks, nine
// rows for other casters, a notice for classes without slots.
func SlotPanel(out io.Writer, p *message.Printer, prog slots.Progression) error {
	fmt.Fprintln(out, p.Sprintf("slots.title"))
	rows := prog.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "  "+p.Sprintf("slots.none"))
		return err
	}
	w := newTable(out)
	for _, r := range rows {
		if r.Pact {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", p.Sprintf("slots.pact"), p.Sprintf("slots.pact_level", r.SpellLevel), Boxes(r.Count))
			continue
		}
		fmt.Fprintf(w, "  %s\t%s\n", p.Sprintf("slots.row", LevelLabel(p, r.SpellLevel)), Boxes(r.Count))
	}
	return w.Flush()
}

// CharacterSheet writes the character fields.
func CharacterSheet(out io.Writer, p *message.Printer, c character.Character) error {
	fmt.Fprintln(out, p.Sprintf("character.title"))
	w := newTable(out)
	fmt.Fprintf(w, "  %s:\t%s\n", p.Sprintf("character.name"), orDash(c.Name))
	fmt.Fprintf(w, "  %s:\t%s\n", p.Sprintf("character.class"), orDash(c.ClassName))
	fmt.Fprintf(w, "  %s:\t%s\n", p.Sprintf("character.subclass"), orDash(c.Subclass))
	fmt.Fprintf(w, "  %s:\t%d\n", p.Sprintf("character.level"), c.Level)
	return w.Flush()
}

// SlotSummary is a one-line summary such as "4/3/2" or "2×5th".
func SlotSummary(p *message.Printer, prog slots.Progression) string {
	switch prog.Caster {
	case slots.Pact:
		return fmt.Sprintf("%d×%s", prog.PactSlots, LevelLabel(p, prog.PactLevel))
	case slots.Full, slots.Half:
		h := prog.Highest()
		if h == 0 {
			return "-"
		}
		parts := make([]string, h)
		for i := 0; i < h; i++ {
			parts[i] = fmt.Sprint(prog.Slots[i])
		}
		return strings.Join(parts, "/")
	}
	return "-"
}
