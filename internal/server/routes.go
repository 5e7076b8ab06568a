package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	h := &handlers{db: opts.DB, cache: opts.Cache, bus: opts.Bus}

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.GET("/spells", h.listSpells)
	api.POST("/status", h.setStatus)
	api.GET("/character", h.getCharacter)
	api.POST("/character", h.saveCharacter)
	api.GET("/slots", h.getSlots)
	api.GET("/classes", h.listClasses)
	api.GET("/events", handleEvents(opts.Bus, opts.Heartbeat))

	router.NoRoute(notFound(opts.StaticDir))
}

// notFound answers API misses with JSON and, when a static directory is
// configured, serves its files for everything else.
func notFound(staticDir string) gin.HandlerFunc {
	var files http.Handler
	if staticDir != "" {
		files = http.FileServer(http.Dir(staticDir))
	}
	return func(c *gin.Context) {
		r := c.Request
		if files == nil || strings.HasPrefix(r.URL.Path, "/api/") ||
			(r.Method != http.MethodGet && r.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": CodeNotFound})
			return
		}
		files.ServeHTTP(c.Writer, r)
	}
}
