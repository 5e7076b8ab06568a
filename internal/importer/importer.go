// Package importer fills the spell catalog from external sources.
package importer

import (
	"context"
	"fmt"
	"log"

	"github.com/zulandar/spellbook/internal/catalog"
	"gorm.io/gorm"
)

// BatchSize is the number of spells written per upsert.
const BatchSize = 25

// Source produces catalog entries from one upstream.
type Source interface {
	// Name identifies the source in logs and events.
	Name() string
	Fetch(ctx context.Context) ([]catalog.Spell, error)
}

// Run fetches every spell from src and upserts them in batches. It returns
// the number of spells written. A failed batch stops the run; batches
// already written stay committed.
func Run(ctx context.Context, db *gorm.DB, src Source) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("importer: db is required")
	}
	if src == nil {
		return 0, fmt.Errorf("importer: source is required")
	}

	spells, err := src.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("importer: fetch %s: %w", src.Name(), err)
	}

	written := 0
	for start := 0; start < len(spells); start += BatchSize {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("importer: %s: %w", src.Name(), err)
		}
		end := min(start+BatchSize, len(spells))
		n, err := catalog.Upsert(db, spells[start:end])
		if err != nil {
			return written, fmt.Errorf("importer: %s batch at %d: %w", src.Name(), start, err)
		}
		written += n
	}
	log.Printf("importer: %s: wrote %d spells", src.Name(), written)
	return written, nil
}
