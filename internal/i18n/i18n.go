// Package i18n holds the English and Italian message catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Fallback is used for unknown or unsupported locales.
var Fallback = language.English

//go:embed locales/*.yaml
var localesFS embed.FS

var defaultCatalog = mustLoad()

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog is a set of locales and their messages.
type Catalog struct {
	builder  *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]string
}

func mustLoad() *Catalog {
	c, err := Load(localesFS)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the embedded catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Load reads locales/*.yaml from fsys. The fallback locale must exist.
func Load(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("i18n: glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("i18n: no locale files found")
	}
	sort.Strings(paths)

	c := &Catalog{
		builder:  catalog.NewBuilder(catalog.Fallback(Fallback)),
		messages: make(map[language.Tag]map[string]string),
	}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("i18n: %s: locale %q: %w", path, file.Locale, err)
		}
		if _, dup := c.messages[tag]; dup {
			return nil, fmt.Errorf("i18n: %s: locale %s defined twice", path, tag)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("i18n: %s: messages are required", path)
		}
		for key, msg := range file.Messages {
			if err := c.builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("i18n: %s: set %q: %w", path, key, err)
			}
		}
		c.messages[tag] = file.Messages
		c.tags = append(c.tags, tag)
	}
	if _, ok := c.messages[Fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback locale %s is not defined", Fallback)
	}

	// The fallback goes first so that it wins when nothing matches.
	sort.SliceStable(c.tags, func(i, j int) bool { return c.tags[i] == Fallback && c.tags[j] != Fallback })
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// Tags returns the supported locales, fallback first.
func (c *Catalog) Tags() []language.Tag {
	out := make([]language.Tag, len(c.tags))
	copy(out, c.tags)
	return out
}

// Match resolves a locale string such as "it", "it-IT" or an
// Accept-Language header to a supported tag.
func (c *Catalog) Match(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fallback
	}
	desired, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(desired) == 0 {
		return Fallback
	}
	_, idx, conf := c.matcher.Match(desired...)
	if conf == language.No {
		return Fallback
	}
	return c.tags[idx]
}

// Printer returns a printer for tag backed by this catalog.
func (c *Catalog) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(c.builder))
}

// Keys returns the sorted message keys defined for tag.
func (c *Catalog) Keys(tag language.Tag) []string {
	msgs := c.messages[tag]
	keys := make([]string, 0, len(msgs))
	for k := range msgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseTag resolves s against the embedded catalog.
func ParseTag(s string) language.Tag {
	return defaultCatalog.Match(s)
}

// Printer returns a printer for tag backed by the embedded catalog.
func Printer(tag language.Tag) *message.Printer {
	return defaultCatalog.Printer(tag)
}

// Supported reports whether s names a locale with its own catalog.
func Supported(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	for _, t := range defaultCatalog.tags {
		if b, _ := t.Base(); b == base {
			return true
		}
	}
	return false
}
