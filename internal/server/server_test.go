package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/events"
	"github.com/zulandar/spellbook/internal/models"
	"github.com/zulandar/spellbook/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeCache is an in-memory SpellCache that counts calls. Keys carry a
// generation that Invalidate bumps.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]catalog.Spell
	gen         int
	hits        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]catalog.Spell)}
}

func (f *fakeCache) GetSpells(_ context.Context, fl catalog.Filters) ([]catalog.Spell, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d:%s", f.gen, fl.Key())
	s, ok := f.entries[key]
	if ok {
		f.hits++
	}
	return s, key, ok, nil
}

func (f *fakeCache) SetSpells(_ context.Context, key string, spells []catalog.Spell) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = spells
	return nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.invalidated++
	return nil
}

func setup(t *testing.T, opts StartOpts) (*gin.Engine, *gorm.DB, []models.Spell) {
	t.Helper()
	gdb := testutil.OpenDB(t)
	spells := testutil.SeedSpells(t, gdb, testutil.SampleSpells()...)
	opts.DB = gdb
	router, err := NewRouter(opts)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return router, gdb, spells
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestNewRouter_NilDB(t *testing.T) {
	_, err := NewRouter(StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil || !strings.Contains(err.Error(), "db is required") {
		t.Errorf("Start(nil db) error = %v", err)
	}
}

func TestHealth(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	w := do(router, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status string `json:"status"`
		Spells int    `json:"spells"`
	}
	decode(t, w, &body)
	if body.Status != "ok" || body.Spells != 5 {
		t.Errorf("body = %+v", body)
	}
}

func TestListSpells(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Benedizione", "Individuazione del Magico", "Luce", "Palla di Fuoco", "Scudo"}},
		{"?level=0", []string{"Luce"}},
		{"?level=abc", []string{"Benedizione", "Individuazione del Magico", "Luce", "Palla di Fuoco", "Scudo"}},
		{"?class=Mago&level=1", []string{"Individuazione del Magico", "Scudo"}},
		{"?ritual=true", []string{"Individuazione del Magico"}},
		{"?component=m&concentration=true", []string{"Benedizione"}},
		{"?q=zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/spells"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var got []catalog.Spell
			decode(t, w, &got)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d spells, want %d: %s", len(got), len(tt.want), w.Body.String())
			}
			for i := range got {
				if got[i].Name != tt.want[i] {
					t.Errorf("spell %d = %q, want %q", i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestListSpells_EmptyIsArray(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	w := do(router, http.MethodGet, "/api/spells?q=nessuno", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestListSpells_WireFields(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	w := do(router, http.MethodGet, "/api/spells?q=Scudo", "")

	var raw []map[string]any
	decode(t, w, &raw)
	if len(raw) != 1 {
		t.Fatalf("got %d spells", len(raw))
	}
	for _, key := range []string{
		"id", "name", "level", "school", "ritual", "concentration", "casting_time",
		"range", "components", "material", "duration", "classes", "description",
		"higher_level", "url", "known", "prepared", "favorite",
	} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
}

func TestSetStatus(t *testing.T) {
	bus := events.NewBus(4)
	sub, cancel := bus.Subscribe()
	defer cancel()
	cache := newFakeCache()
	router, _, spells := setup(t, StartOpts{Bus: bus, Cache: cache})
	scudo := spells[4]

	// Warm the cache.
	do(router, http.MethodGet, "/api/spells", "")
	do(router, http.MethodGet, "/api/spells", "")
	if cache.hits != 1 {
		t.Fatalf("cache hits = %d, want 1", cache.hits)
	}

	body := `{"spell_id": ` + jsonUint(scudo.ID) + `, "known": true, "prepared": true}`
	w := do(router, http.MethodPost, "/api/status", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Errorf("body = %s", w.Body.String())
	}
	if cache.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", cache.invalidated)
	}

	select {
	case e := <-sub:
		if e.Type != events.TypeStatus || e.SpellID != scudo.ID || e.SpellName != "Scudo" || !e.Prepared || e.WasPrepared {
			t.Errorf("event = %+v", e)
		}
	default:
		t.Error("no status event published")
	}

	w = do(router, http.MethodGet, "/api/spells?q=Scudo", "")
	var got []catalog.Spell
	decode(t, w, &got)
	if len(got) != 1 || !got[0].Known || !got[0].Prepared || got[0].Favorite {
		t.Errorf("after update = %+v", got)
	}
}

func TestSetStatus_Errors(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing id", `{"known": true}`, http.StatusBadRequest, CodeMissingSpellID},
		{"zero id", `{"spell_id": 0}`, http.StatusBadRequest, CodeMissingSpellID},
		{"malformed", `{"spell_id":`, http.StatusBadRequest, CodeMissingSpellID},
		{"empty body", "", http.StatusBadRequest, CodeMissingSpellID},
		{"unknown spell", `{"spell_id": 9999}`, http.StatusNotFound, CodeSpellNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/status", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if code := errorCode(t, w); code != tt.code {
				t.Errorf("error = %q, want %q", code, tt.code)
			}
		})
	}
}

func TestCharacter(t *testing.T) {
	bus := events.NewBus(4)
	sub, cancel := bus.Subscribe()
	defer cancel()
	router, _, _ := setup(t, StartOpts{Bus: bus})

	w := do(router, http.MethodGet, "/api/character", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var raw map[string]any
	decode(t, w, &raw)
	for _, key := range []string{"name", "class_name", "subclass", "level"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
	if raw["level"] != float64(1) {
		t.Errorf("default level = %v", raw["level"])
	}

	w = do(router, http.MethodPost, "/api/character", `{"name":"Mordenkainen","class_name":"mago","subclass":"Abiurazione","level":"7"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d: %s", w.Code, w.Body.String())
	}
	var saved struct {
		Name      string `json:"name"`
		ClassName string `json:"class_name"`
		Subclass  string `json:"subclass"`
		Level     int    `json:"level"`
	}
	decode(t, w, &saved)
	if saved.Name != "Mordenkainen" || saved.ClassName != "mago" || saved.Level != 7 {
		t.Errorf("saved = %+v", saved)
	}

	select {
	case e := <-sub:
		if e.Type != events.TypeCharacter || e.Level != 7 || e.ClassName != "mago" {
			t.Errorf("event = %+v", e)
		}
	default:
		t.Error("no character event published")
	}

	w = do(router, http.MethodGet, "/api/character", "")
	decode(t, w, &saved)
	if saved.Subclass != "Abiurazione" || saved.Level != 7 {
		t.Errorf("reloaded = %+v", saved)
	}
}

func TestCharacter_Errors(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"too high", `{"level": 21}`, CodeLevelOutOfRange},
		{"zero", `{"level": 0}`, CodeLevelOutOfRange},
		{"malformed", `{"level":`, CodeInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/character", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if code := errorCode(t, w); code != tt.code {
				t.Errorf("error = %q, want %q", code, tt.code)
			}
		})
	}

	w := do(router, http.MethodPost, "/api/character", `{"name":"x","level":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("null level status = %d", w.Code)
	}
	var saved struct {
		Level int `json:"level"`
	}
	decode(t, w, &saved)
	if saved.Level != 1 {
		t.Errorf("null level saved as %d, want 1", saved.Level)
	}
}

func TestSlots(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})

	var p slotsResponse
	w := do(router, http.MethodGet, "/api/slots?class=chierico&level=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	decode(t, w, &p)
	if p.Class != "cleric" || p.Slots[0] != 4 || p.Slots[2] != 2 || len(p.Rows) != 9 {
		t.Errorf("cleric 5 = %+v", p)
	}

	w = do(router, http.MethodGet, "/api/slots?class=warlock&level=9", "")
	p = slotsResponse{}
	decode(t, w, &p)
	if p.PactSlots != 2 || p.PactLevel != 5 || len(p.Rows) != 1 {
		t.Errorf("warlock 9 = %+v", p)
	}

	w = do(router, http.MethodGet, "/api/slots?class=guerriero&level=5", "")
	p = slotsResponse{}
	decode(t, w, &p)
	if p.Caster != "none" || p.Rows == nil || len(p.Rows) != 0 {
		t.Errorf("non-caster = %+v", p)
	}

	w = do(router, http.MethodGet, "/api/slots?class=mago&level=25", "")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != CodeLevelOutOfRange {
		t.Errorf("level 25: %d %s", w.Code, w.Body.String())
	}
	w = do(router, http.MethodGet, "/api/slots?class=mago&level=tre", "")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != CodeInvalidLevel {
		t.Errorf("level tre: %d %s", w.Code, w.Body.String())
	}
}

func TestSlots_FromCharacter(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	do(router, http.MethodPost, "/api/character", `{"class_name":"paladino","level":5}`)

	var p slotsResponse
	w := do(router, http.MethodGet, "/api/slots", "")
	decode(t, w, &p)
	if p.Class != "paladin" || p.Level != 5 || p.Slots[0] != 4 || p.Slots[1] != 2 {
		t.Errorf("stored character slots = %+v", p)
	}
}

func TestClasses(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	w := do(router, http.MethodGet, "/api/classes", "")
	var classes []struct {
		ID     string `json:"id"`
		Caster string `json:"caster"`
	}
	decode(t, w, &classes)
	if len(classes) != 9 || classes[0].ID != "artificer" || classes[0].Caster != "half" {
		t.Errorf("classes = %+v", classes)
	}
}

func TestNotFound(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	w := do(router, http.MethodGet, "/api/unknown", "")
	if w.Code != http.StatusNotFound || errorCode(t, w) != CodeNotFound {
		t.Errorf("api miss: %d %s", w.Code, w.Body.String())
	}
}

func TestStaticDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Spellbook</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	router, _, _ := setup(t, StartOpts{StaticDir: dir})

	w := do(router, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Spellbook") {
		t.Errorf("index: %d %q", w.Code, w.Body.String())
	}
	w = do(router, http.MethodGet, "/app.js", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("app.js: %d %q", w.Code, w.Body.String())
	}
	w = do(router, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("api miss with static dir: %d", w.Code)
	}
}

func TestEvents_NilBus(t *testing.T) {
	router, _, _ := setup(t, StartOpts{})
	w := do(router, http.MethodGet, "/api/events", "")
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "event: connected") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestEvents_Stream(t *testing.T) {
	bus := events.NewBus(4)
	router, _, _ := setup(t, StartOpts{Bus: bus, Heartbeat: 50 * time.Millisecond})
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(resp.Body)
	published := false
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "event: ") {
			continue
		}
		name := strings.TrimPrefix(line, "event: ")
		seen[name] = true
		if name == "connected" && !published {
			for bus.Subscribers() == 0 {
				time.Sleep(5 * time.Millisecond)
			}
			bus.Publish(events.Event{Type: events.TypeCatalog, Imported: 3})
			published = true
		}
		if seen["catalog"] && seen["heartbeat"] {
			break
		}
	}
	if !seen["connected"] || !seen["catalog"] || !seen["heartbeat"] {
		t.Errorf("events seen = %v", seen)
	}
}

func jsonUint(n uint) string {
	b, _ := json.Marshal(n)
	return string(b)
}
