// Package state keeps a local view of the catalog and character sheet in
// sync with a spellbook server.
//
// Writes are sent as they happen and followed by a refetch; the server is
// the source of truth on the next read. Overlapping calls are not ordered:
// whichever response lands last wins.
package state

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/character"
	"github.com/zulandar/spellbook/internal/events"
	"github.com/zulandar/spellbook/internal/slots"
)

// Default debounce delays.
const (
	DefaultSearchDelay = 300 * time.Millisecond
	DefaultTextDelay   = 400 * time.Millisecond
)

// ErrUnknownSpell is returned when toggling a spell not in the local list.
var ErrUnknownSpell = errors.New("state: spell not loaded")

// Flag names one of the per-spell marks.
type Flag string

const (
	FlagKnown    Flag = "known"
	FlagPrepared Flag = "prepared"
	FlagFavorite Flag = "favorite"
)

// ParseFlag resolves a flag name.
func ParseFlag(s string) (Flag, error) {
	switch f := Flag(strings.ToLower(strings.TrimSpace(s))); f {
	case FlagKnown, FlagPrepared, FlagFavorite:
		return f, nil
	}
	return "", fmt.Errorf("state: unknown flag %q", s)
}

// API is the server surface the controller needs. *client.Client
// satisfies it.
type API interface {
	ListSpells(ctx context.Context, f catalog.Filters) ([]catalog.Spell, error)
	SetStatus(ctx context.Context, u catalog.StatusUpdate) error
	Character(ctx context.Context) (*character.Character, error)
	SaveCharacter(ctx context.Context, ch character.Character) (*character.Character, error)
}

// Options tunes a Controller. Zero values use the defaults.
type Options struct {
	SearchDelay time.Duration
	TextDelay   time.Duration
	// OnError receives failures of debounced calls, which have no caller
	// to return to. Defaults to logging.
	OnError func(error)
}

// Controller holds the client-side state.
type Controller struct {
	api API

	mu          sync.Mutex
	filters     catalog.Filters
	spells      []catalog.Spell
	char        character.Character
	progression slots.Progression
	onChange    func()

	search  *Debouncer
	text    *Debouncer
	onError func(error)
}

// New creates a controller backed by api.
func New(api API, opts Options) *Controller {
	if opts.SearchDelay <= 0 {
		opts.SearchDelay = DefaultSearchDelay
	}
	if opts.TextDelay <= 0 {
		opts.TextDelay = DefaultTextDelay
	}
	if opts.OnError == nil {
		opts.OnError = func(err error) { log.Printf("state: %v", err) }
	}
	c := &Controller{
		api:     api,
		search:  NewDebouncer(opts.SearchDelay),
		text:    NewDebouncer(opts.TextDelay),
		onError: opts.OnError,
		char:    character.Character{Level: slots.MinLevel},
	}
	c.progression, _ = slots.Compute("", slots.MinLevel)
	return c
}

// OnChange registers fn to run after every visible change. It replaces
// any earlier callback.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close drops pending debounced calls.
func (c *Controller) Close() {
	c.search.Stop()
	c.text.Stop()
}

// Flush runs pending debounced calls immediately.
func (c *Controller) Flush() {
	c.search.Flush()
	c.text.Flush()
}

// Load fetches the character, then the spell list.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.LoadCharacter(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// LoadCharacter replaces the local character with the server's.
func (c *Controller) LoadCharacter(ctx context.Context) error {
	ch, err := c.api.Character(ctx)
	if err != nil {
		return fmt.Errorf("state: load character: %w", err)
	}
	c.mu.Lock()
	c.setCharacterLocked(*ch)
	c.mu.Unlock()
	c.changed()
	return nil
}

// Refresh refetches the spell list with the current filters.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	f := c.filters
	c.mu.Unlock()

	spells, err := c.api.ListSpells(ctx, f)
	if err != nil {
		return fmt.Errorf("state: fetch spells: %w", err)
	}
	c.mu.Lock()
	c.spells = spells
	c.mu.Unlock()
	c.changed()
	return nil
}

// SetFilter changes one filter. Search text refetches after the search
// delay; other filters refetch at once.
func (c *Controller) SetFilter(ctx context.Context, key, value string) error {
	c.mu.Lock()
	err := c.filters.Set(key, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if key == catalog.KeyQuery {
		c.search.Trigger(func() {
			if err := c.Refresh(ctx); err != nil {
				c.onError(err)
			}
		})
		return nil
	}
	return c.Refresh(ctx)
}

// Filters returns the current filters.
func (c *Controller) Filters() catalog.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Toggle flips one flag of a spell, sends all three flags and refetches.
// On failure the local flip stays and the error is returned; the next
// successful fetch restores the server's view.
func (c *Controller) Toggle(ctx context.Context, spellID uint, flag Flag) error {
	c.mu.Lock()
	idx := -1
	for i := range c.spells {
		if c.spells[i].ID == spellID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownSpell, spellID)
	}
	s := &c.spells[idx]
	switch flag {
	case FlagKnown:
		s.Known = !s.Known
	case FlagPrepared:
		s.Prepared = !s.Prepared
	case FlagFavorite:
		s.Favorite = !s.Favorite
	default:
		c.mu.Unlock()
		return fmt.Errorf("state: unknown flag %q", flag)
	}
	u := catalog.StatusUpdate{SpellID: s.ID, Known: s.Known, Prepared: s.Prepared, Favorite: s.Favorite}
	c.mu.Unlock()
	c.changed()

	if err := c.api.SetStatus(ctx, u); err != nil {
		return fmt.Errorf("state: set status %d: %w", spellID, err)
	}
	return c.Refresh(ctx)
}

// UpdateCharacter stores ch locally, recomputes slots and saves it.
func (c *Controller) UpdateCharacter(ctx context.Context, ch character.Character) error {
	c.mu.Lock()
	c.setCharacterLocked(ch)
	ch = c.char
	c.mu.Unlock()
	c.changed()

	saved, err := c.api.SaveCharacter(ctx, ch)
	if err != nil {
		return fmt.Errorf("state: save character: %w", err)
	}
	c.mu.Lock()
	c.setCharacterLocked(*saved)
	c.mu.Unlock()
	c.changed()
	return nil
}

// EditCharacterText updates name and subclass locally and saves after the
// text delay. Class and level edits go through UpdateCharacter instead.
func (c *Controller) EditCharacterText(ctx context.Context, name, subclass string) {
	c.mu.Lock()
	c.char.Name = name
	c.char.Subclass = subclass
	c.mu.Unlock()
	c.changed()

	c.text.Trigger(func() {
		c.mu.Lock()
		ch := c.char
		c.mu.Unlock()
		if err := c.UpdateCharacter(ctx, ch); err != nil {
			c.onError(err)
		}
	})
}

// setCharacterLocked normalizes and stores ch. Callers hold c.mu.
func (c *Controller) setCharacterLocked(ch character.Character) {
	ch.Name = strings.TrimSpace(ch.Name)
	ch.Subclass = strings.TrimSpace(ch.Subclass)
	if ch.Level == 0 {
		ch.Level = slots.MinLevel
	}
	c.char = ch
	p, err := slots.Compute(ch.ClassName, ch.Level)
	if err != nil {
		p = slots.Progression{Class: slots.Normalize(ch.ClassName), Caster: slots.None, Level: ch.Level}
	}
	c.progression = p
}

// HandleEvent refetches whatever a server change event touched.
func (c *Controller) HandleEvent(ctx context.Context, t events.Type) error {
	switch t {
	case events.TypeCharacter:
		return c.LoadCharacter(ctx)
	case events.TypeStatus, events.TypeCatalog:
		return c.Refresh(ctx)
	}
	return nil
}

// Spells returns a copy of the current spell list in catalog order.
func (c *Controller) Spells() []catalog.Spell {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]catalog.Spell, len(c.spells))
	copy(out, c.spells)
	return out
}

// Known returns the known spells in catalog order.
func (c *Controller) Known() []catalog.Spell {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []catalog.Spell
	for _, s := range c.spells {
		if s.Known {
			out = append(out, s)
		}
	}
	return out
}

// Character returns the local character.
func (c *Controller) Character() character.Character {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.char
}

// Slots returns the progression derived from the local character.
func (c *Controller) Slots() slots.Progression {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progression
}
