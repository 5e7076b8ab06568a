// Package notify announces spellbook changes to chat platforms.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/zulandar/spellbook/internal/events"
	"github.com/zulandar/spellbook/internal/slots"
	"github.com/zulandar/spellbook/internal/view"
	"golang.org/x/text/message"
)

// Color constants for message severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Notifier delivers one event to a chat destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, e events.Event) error
}

// Message is a platform-neutral announcement.
type Message struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Field is a key-value pair displayed under a message.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Formatter turns events into localized messages.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter printing with p.
func NewFormatter(p *message.Printer) *Formatter {
	return &Formatter{p: p}
}

// Format builds the message for e. It reports false for events that are
// not announced, such as status changes that leave "prepared" alone.
func (f *Formatter) Format(e events.Event) (Message, bool) {
	switch e.Type {
	case events.TypeCharacter:
		return f.character(e), true
	case events.TypeStatus:
		if e.Prepared == e.WasPrepared {
			return Message{}, false
		}
		key, color := "notify.unprepared", ColorInfo
		if e.Prepared {
			key, color = "notify.prepared", ColorSuccess
		}
		return Message{Title: f.p.Sprintf(key, e.SpellName), Color: color}, true
	case events.TypeCatalog:
		if e.Err != "" {
			return Message{
				Title: f.p.Sprintf("notify.import.failed", e.Source, e.Err),
				Color: ColorError,
			}, true
		}
		return Message{
			Title: f.p.Sprintf("notify.import.title"),
			Body:  f.p.Sprintf("notify.import.body", e.Imported, e.Source),
			Color: ColorSuccess,
		}, true
	}
	return Message{}, false
}

func (f *Formatter) character(e events.Event) Message {
	msg := Message{
		Title: f.p.Sprintf("notify.character.title"),
		Body:  f.p.Sprintf("notify.character.body", e.Name, e.ClassName, e.Level),
		Color: ColorInfo,
	}
	if e.Subclass != "" {
		msg.Fields = append(msg.Fields, Field{Name: f.p.Sprintf("character.subclass"), Value: e.Subclass, Short: true})
	}
	prog, err := slots.Compute(e.ClassName, e.Level)
	if err == nil && prog.HasSlots() {
		msg.Fields = append(msg.Fields, Field{
			Name:  f.p.Sprintf("slots.title"),
			Value: f.p.Sprintf("notify.slots", view.SlotSummary(f.p, prog)),
			Short: true,
		})
	}
	return msg
}

// Text renders msg as plain text, for fallbacks and logs.
func (m Message) Text() string {
	if m.Body == "" {
		return m.Title
	}
	return fmt.Sprintf("%s: %s", m.Title, m.Body)
}

// Run forwards bus events to every notifier until ctx is cancelled or the
// bus closes. Delivery errors are logged, never returned.
func Run(ctx context.Context, bus *events.Bus, notifiers ...Notifier) {
	if bus == nil || len(notifiers) == 0 {
		return
	}
	ch, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			for _, n := range notifiers {
				if err := n.Notify(ctx, e); err != nil {
					log.Printf("notify: %s: %v", n.Name(), err)
				}
			}
		}
	}
}
