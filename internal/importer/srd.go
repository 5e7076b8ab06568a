package importer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"
	"github.com/fadedpez/dnd5e-api/entities"
	"github.com/zulandar/spellbook/internal/catalog"
)

// DefaultSRDURL is the dnd5eapi.co 2014 ruleset endpoint.
const DefaultSRDURL = "https://www.dnd5eapi.co/api/2014/"

// SRDSource is stored on every spell the SRD source produces.
const SRDSource = "dnd5eapi.co"

// srdWorkers bounds concurrent detail lookups.
const srdWorkers = 8

// SpellAPI is the slice of the dnd5e client the SRD source calls.
type SpellAPI interface {
	ListSpells(input *dnd5e.ListSpellsInput) ([]*entities.ReferenceItem, error)
	GetSpell(key string) (*entities.Spell, error)
}

// SRD imports the open 5e reference spells.
type SRD struct {
	api     SpellAPI
	baseURL string
}

// NewSRD wraps an existing client. baseURL prefixes the stored spell URLs.
func NewSRD(api SpellAPI, baseURL string) *SRD {
	if baseURL == "" {
		baseURL = DefaultSRDURL
	}
	return &SRD{api: api, baseURL: baseURL}
}

// DialSRD builds a cached dnd5eapi.co client.
func DialSRD(baseURL string, timeout, cacheTTL time.Duration) (*SRD, error) {
	if baseURL == "" {
		baseURL = DefaultSRDURL
	}
	base, err := dnd5e.NewDND5eAPI(&dnd5e.DND5eAPIConfig{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("importer: srd client: %w", err)
	}
	return NewSRD(dnd5e.NewCachedClient(base, cacheTTL), baseURL), nil
}

// Name implements Source.
func (s *SRD) Name() string { return "srd" }

// Fetch implements Source. Details load concurrently; results keep the
// order of the reference list.
func (s *SRD) Fetch(ctx context.Context) ([]catalog.Spell, error) {
	refs, err := s.api.ListSpells(&dnd5e.ListSpellsInput{})
	if err != nil {
		return nil, fmt.Errorf("importer: srd list spells: %w", err)
	}

	spells := make([]catalog.Spell, len(refs))
	errs := make([]error, len(refs))
	sem := make(chan struct{}, srdWorkers)
	var wg sync.WaitGroup

	for i, ref := range refs {
		if ref == nil {
			errs[i] = fmt.Errorf("importer: srd reference %d is nil", i)
			continue
		}
		wg.Add(1)
		go func(idx int, key string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}

			spell, err := s.api.GetSpell(key)
			if err != nil {
				errs[idx] = fmt.Errorf("importer: srd get spell %s: %w", key, err)
				return
			}
			if spell == nil {
				errs[idx] = fmt.Errorf("importer: srd get spell %s: empty response", key)
				return
			}
			spells[idx] = s.convert(spell)
		}(i, ref.Key)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return spells, nil
}

func (s *SRD) convert(spell *entities.Spell) catalog.Spell {
	out := catalog.Spell{
		Name:          spell.Name,
		Level:         spell.SpellLevel,
		CastingTime:   spell.CastingTime,
		Range:         spell.Range,
		Duration:      spell.Duration,
		Ritual:        spell.Ritual,
		Concentration: spell.Concentration,
		URL:           strings.TrimRight(s.baseURL, "/") + "/spells/" + spell.Key,
		Source:        SRDSource,
	}
	if spell.SpellSchool != nil {
		out.School = spell.SpellSchool.Name
	}
	names := make([]string, 0, len(spell.SpellClasses))
	for _, c := range spell.SpellClasses {
		if c != nil && c.Name != "" {
			names = append(names, c.Name)
		}
	}
	out.Classes = strings.Join(names, ", ")
	return out
}
