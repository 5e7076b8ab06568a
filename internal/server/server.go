// Package server exposes the catalog, character sheet and slot
// calculator over a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/events"
	"gorm.io/gorm"
)

// DefaultPort is used when StartOpts.Port is unset.
const DefaultPort = 5178

// DefaultHeartbeat is the SSE keep-alive interval.
const DefaultHeartbeat = 15 * time.Second

// SpellCache caches spell listings by filter. GetSpells returns the key a
// miss should be filled under. *cache.Cache satisfies it.
type SpellCache interface {
	GetSpells(ctx context.Context, f catalog.Filters) ([]catalog.Spell, string, bool, error)
	SetSpells(ctx context.Context, key string, spells []catalog.Spell) error
	Invalidate(ctx context.Context) error
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB        *gorm.DB
	Port      int
	Out       io.Writer
	StaticDir string
	Cache     SpellCache
	Bus       *events.Bus
	Heartbeat time.Duration
}

// NewRouter builds the gin engine serving the API.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}

	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Spellbook running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
