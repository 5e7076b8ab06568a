package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/character"
	"github.com/zulandar/spellbook/internal/events"
	"github.com/zulandar/spellbook/internal/slots"
	"gorm.io/gorm"
)

// Error codes returned in {"error": code} bodies.
const (
	CodeMissingSpellID  = "missing_spell_id"
	CodeSpellNotFound   = "spell_not_found"
	CodeLevelOutOfRange = "level_out_of_range"
	CodeInvalidBody     = "invalid_body"
	CodeInvalidLevel    = "invalid_level"
	CodeInternal        = "internal_error"
	CodeNotFound        = "not_found"
)

type handlers struct {
	db    *gorm.DB
	cache SpellCache
	bus   *events.Bus
}

// slotsResponse is a progression plus its display rows.
type slotsResponse struct {
	slots.Progression
	Rows []slots.Row `json:"rows"`
}

func abortError(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

func (h *handlers) internal(c *gin.Context, err error) {
	log.Printf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	abortError(c, http.StatusInternalServerError, CodeInternal)
}

func (h *handlers) publish(e events.Event) {
	if h.bus != nil {
		h.bus.Publish(e)
	}
}

func (h *handlers) invalidate(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(c.Request.Context()); err != nil {
		log.Printf("server: invalidate cache: %v", err)
	}
}

func (h *handlers) health(c *gin.Context) {
	n, err := catalog.Count(h.db)
	if err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "spells": n})
}

func (h *handlers) listSpells(c *gin.Context) {
	ctx := c.Request.Context()
	f := catalog.ParseFilters(c.Request.URL.Query())

	var key string
	if h.cache != nil {
		spells, k, ok, err := h.cache.GetSpells(ctx, f)
		if err != nil {
			log.Printf("server: read cache: %v", err)
		} else if ok {
			c.JSON(http.StatusOK, spells)
			return
		}
		key = k
	}

	spells, err := catalog.List(h.db, f)
	if err != nil {
		h.internal(c, err)
		return
	}
	if h.cache != nil && key != "" {
		if err := h.cache.SetSpells(ctx, key, spells); err != nil {
			log.Printf("server: write cache: %v", err)
		}
	}
	c.JSON(http.StatusOK, spells)
}

func (h *handlers) setStatus(c *gin.Context) {
	// A malformed body is treated as an empty one.
	var u catalog.StatusUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		u = catalog.StatusUpdate{}
	}
	if u.SpellID == 0 {
		abortError(c, http.StatusBadRequest, CodeMissingSpellID)
		return
	}

	prev, err := catalog.Get(h.db, u.SpellID)
	if errors.Is(err, catalog.ErrSpellNotFound) {
		abortError(c, http.StatusNotFound, CodeSpellNotFound)
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}

	if err := catalog.SetStatus(h.db, u); err != nil {
		switch {
		case errors.Is(err, catalog.ErrMissingSpellID):
			abortError(c, http.StatusBadRequest, CodeMissingSpellID)
		case errors.Is(err, catalog.ErrSpellNotFound):
			abortError(c, http.StatusNotFound, CodeSpellNotFound)
		default:
			h.internal(c, err)
		}
		return
	}

	h.invalidate(c)
	h.publish(events.Event{
		Type:        events.TypeStatus,
		SpellID:     u.SpellID,
		SpellName:   prev.Name,
		Known:       u.Known,
		Prepared:    u.Prepared,
		Favorite:    u.Favorite,
		WasPrepared: prev.Prepared,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) getCharacter(c *gin.Context) {
	ch, err := character.Get(h.db)
	if err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *handlers) saveCharacter(c *gin.Context) {
	var u character.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		abortError(c, http.StatusBadRequest, CodeInvalidBody)
		return
	}

	ch, err := character.Save(h.db, u)
	if errors.Is(err, character.ErrLevelOutOfRange) {
		abortError(c, http.StatusBadRequest, CodeLevelOutOfRange)
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}

	h.publish(events.Event{
		Type:      events.TypeCharacter,
		Name:      ch.Name,
		ClassName: ch.ClassName,
		Subclass:  ch.Subclass,
		Level:     ch.Level,
	})
	c.JSON(http.StatusOK, ch)
}

// getSlots computes a progression from the class and level parameters, or
// from the stored character when both are absent.
func (h *handlers) getSlots(c *gin.Context) {
	class := strings.TrimSpace(c.Query("class"))
	rawLevel := strings.TrimSpace(c.Query("level"))

	level := 0
	if class == "" && rawLevel == "" {
		ch, err := character.Get(h.db)
		if err != nil {
			h.internal(c, err)
			return
		}
		class, level = ch.ClassName, ch.Level
	} else if rawLevel != "" {
		n, err := strconv.Atoi(rawLevel)
		if err != nil {
			abortError(c, http.StatusBadRequest, CodeInvalidLevel)
			return
		}
		level = n
	}

	p, err := slots.Compute(class, level)
	if errors.Is(err, slots.ErrLevelOutOfRange) {
		abortError(c, http.StatusBadRequest, CodeLevelOutOfRange)
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}
	rows := p.Rows()
	if rows == nil {
		rows = []slots.Row{}
	}
	c.JSON(http.StatusOK, slotsResponse{Progression: p, Rows: rows})
}

func (h *handlers) listClasses(c *gin.Context) {
	c.JSON(http.StatusOK, slots.Classes())
}
