// Package events is an in-process bus for catalog and character changes.
package events

import (
	"sync"
	"time"
)

// Type identifies what changed.
type Type string

const (
	TypeStatus    Type = "status"
	TypeCharacter Type = "character"
	TypeCatalog   Type = "catalog"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 32

// Event describes one change. Only the fields for its Type are set.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Status events
	SpellID   uint   `json:"spell_id,omitempty"`
	SpellName string `json:"spell_name,omitempty"`
	Known     bool   `json:"known,omitempty"`
	Prepared  bool   `json:"prepared,omitempty"`
	Favorite  bool   `json:"favorite,omitempty"`
	// WasPrepared is the prepared flag before the change.
	WasPrepared bool `json:"-"`

	// Character events
	Name      string `json:"name,omitempty"`
	ClassName string `json:"class_name,omitempty"`
	Subclass  string `json:"subclass,omitempty"`
	Level     int    `json:"level,omitempty"`

	// Catalog events
	Source   string `json:"source,omitempty"`
	Imported int    `json:"imported,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Bus fans events out to subscribers. Slow subscribers drop events
// rather than block publishers.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

// NewBus creates a bus whose subscriber channels hold buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Publish delivers e to every subscriber with room. It reports how many
// subscribers received it.
func (b *Bus) Publish(e Event) int {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribe registers a subscriber. The returned cancel func unregisters
// it and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes all subscriber channels. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
