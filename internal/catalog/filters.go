package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filter keys accepted by ParseFilters and Filters.Set.
const (
	KeyQuery         = "q"
	KeyLevel         = "level"
	KeyClass         = "class"
	KeySchool        = "school"
	KeyRitual        = "ritual"
	KeyConcentration = "concentration"
	KeyComponent     = "component"
)

// FilterKeys lists the filter keys in serialization order.
var FilterKeys = []string{KeyQuery, KeyLevel, KeyClass, KeySchool, KeyRitual, KeyConcentration, KeyComponent}

// Filters narrows a catalog listing. Zero values mean "no constraint".
type Filters struct {
	Query         string // substring of the name
	Level         *int
	Class         string // lower-cased substring of the class list
	School        string // lower-cased substring of the school
	Ritual        *bool
	Concentration *bool
	Component     string // V, S or M
}

// ParseFilters reads filters from query parameters. Values that do not
// parse are ignored rather than rejected.
func ParseFilters(v url.Values) Filters {
	var f Filters
	for _, key := range FilterKeys {
		_ = f.Set(key, v.Get(key))
	}
	return f
}

// Set applies one raw filter value. An empty or unparsable value clears
// the filter. Only unknown keys are an error.
func (f *Filters) Set(key, value string) error {
	switch key {
	case KeyQuery:
		f.Query = strings.TrimSpace(value)
	case KeyLevel:
		f.Level = nil
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			f.Level = &n
		}
	case KeyClass:
		f.Class = strings.ToLower(strings.TrimSpace(value))
	case KeySchool:
		f.School = strings.ToLower(strings.TrimSpace(value))
	case KeyRitual:
		f.Ritual = parseFlag(value)
	case KeyConcentration:
		f.Concentration = parseFlag(value)
	case KeyComponent:
		c := strings.ToUpper(strings.TrimSpace(value))
		switch c {
		case "V", "S", "M":
			f.Component = c
		default:
			f.Component = ""
		}
	default:
		return fmt.Errorf("catalog: unknown filter %q", key)
	}
	return nil
}

// parseFlag accepts only the literal strings "true" and "false".
func parseFlag(value string) *bool {
	switch value {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}

// Values serializes the filters back to query parameters, omitting
// unset ones.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set(KeyQuery, f.Query)
	}
	if f.Level != nil {
		v.Set(KeyLevel, strconv.Itoa(*f.Level))
	}
	if f.Class != "" {
		v.Set(KeyClass, f.Class)
	}
	if f.School != "" {
		v.Set(KeySchool, f.School)
	}
	if f.Ritual != nil {
		v.Set(KeyRitual, strconv.FormatBool(*f.Ritual))
	}
	if f.Concentration != nil {
		v.Set(KeyConcentration, strconv.FormatBool(*f.Concentration))
	}
	if f.Component != "" {
		v.Set(KeyComponent, f.Component)
	}
	return v
}

// Key is a stable string form of the filters, suitable as a cache key.
func (f Filters) Key() string {
	return f.Values().Encode()
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Values()) == 0
}
