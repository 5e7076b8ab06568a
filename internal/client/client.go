// Package client talks to a spellbook server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/character"
	"github.com/zulandar/spellbook/internal/slots"
)

// DefaultTimeout bounds every request when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response. Code is the server's error code when
// the body carried one.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("client: server returned %d", e.Status)
	}
	return fmt.Sprintf("client: server returned %d: %s", e.Status, e.Code)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// SlotsResult is a slot progression with its display rows.
type SlotsResult struct {
	slots.Progression
	Rows []slots.Row `json:"rows"`
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a spellbook API client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for the server at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: hc}, nil
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.base.String(), "/")
}

// ListSpells fetches the catalog filtered by f.
func (c *Client) ListSpells(ctx context.Context, f catalog.Filters) ([]catalog.Spell, error) {
	var spells []catalog.Spell
	if err := c.do(ctx, http.MethodGet, "api/spells", f.Values(), nil, &spells); err != nil {
		return nil, err
	}
	return spells, nil
}

// SetStatus stores the three flags of one spell.
func (c *Client) SetStatus(ctx context.Context, u catalog.StatusUpdate) error {
	return c.do(ctx, http.MethodPost, "api/status", nil, u, nil)
}

// Character fetches the character sheet.
func (c *Client) Character(ctx context.Context) (*character.Character, error) {
	var ch character.Character
	if err := c.do(ctx, http.MethodGet, "api/character", nil, nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// SaveCharacter stores ch and returns the record as the server kept it.
func (c *Client) SaveCharacter(ctx context.Context, ch character.Character) (*character.Character, error) {
	var saved character.Character
	if err := c.do(ctx, http.MethodPost, "api/character", nil, character.FromCharacter(ch), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Slots asks the server for the progression of class at level. An empty
// class and zero level use the stored character.
func (c *Client) Slots(ctx context.Context, class string, level int) (*SlotsResult, error) {
	q := url.Values{}
	if class != "" {
		q.Set("class", class)
	}
	if level != 0 {
		q.Set("level", strconv.Itoa(level))
	}
	var res SlotsResult
	if err := c.do(ctx, http.MethodGet, "api/slots", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Classes lists the classes the server knows.
func (c *Client) Classes(ctx context.Context) ([]slots.ClassInfo, error) {
	var classes []slots.ClassInfo
	if err := c.do(ctx, http.MethodGet, "api/classes", nil, nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("client: read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Code = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}
