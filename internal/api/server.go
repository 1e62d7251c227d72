// Package api implements the loopback HTTP surface (spec §4.6, §6.1): a
// single-process server with no authentication, JSON in/JSON out except
// the preview envelope, and NDJSON progress streaming for long-running
// operations.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/plugin"
	"github.com/Explosion-Scratch/clippy-sub000/internal/previewcache"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
	"github.com/Explosion-Scratch/clippy-sub000/internal/watcher"
)

// Version is the build-reported API version string.
const Version = "1.0.0"

// Server wires the store/index/watcher/registry into echo routes.
type Server struct {
	echo *echo.Echo

	store    *store.Store
	index    *index.Index
	registry *plugin.Registry
	watcher  *watcher.Watcher
	cache    *cache.Cache
	log      logging.Logger

	root         string
	osDefaultDir string
	instanceID   string
	startTime    time.Time

	onRelocate func(newRoot string) error
}

// Deps bundles the collaborators a Server needs, kept as one struct so
// New's signature doesn't grow with every added component.
type Deps struct {
	Store        *store.Store
	Index        *index.Index
	Registry     *plugin.Registry
	Watcher      *watcher.Watcher
	Cache        *cache.Cache
	Log          logging.Logger
	Root         string
	OSDefaultDir string
	InstanceID   string
	OnRelocate   func(newRoot string) error
}

// New builds a Server with every route registered but not yet listening.
func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: 30 * time.Second}))

	s := &Server{
		echo:         e,
		store:        d.Store,
		index:        d.Index,
		registry:     d.Registry,
		watcher:      d.Watcher,
		cache:        d.Cache,
		log:          d.Log,
		root:         d.Root,
		osDefaultDir: d.OSDefaultDir,
		instanceID:   d.InstanceID,
		startTime:    time.Now(),
		onRelocate:   d.OnRelocate,
	}
	e.HTTPErrorHandler = s.errorHandler
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.handleDocs)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/mtime", s.handleMtime)

	s.echo.GET("/items", s.handleItems)
	s.echo.GET("/item/:sel", s.handleItemSummary)
	s.echo.GET("/item/:sel/data", s.handleItemData)
	s.echo.GET("/item/:sel/text", s.handleItemText)
	s.echo.GET("/item/:sel/preview", s.handleItemPreview)
	s.echo.POST("/item/:sel/copy", s.handleItemCopy)
	s.echo.POST("/item/:sel/paste", s.handleItemPaste)
	s.echo.PUT("/item/:sel", s.handleItemBump)
	s.echo.PATCH("/item/:sel", s.handleItemEdit)
	s.echo.DELETE("/item/:sel", s.handleItemDelete)

	s.echo.GET("/search", s.handleSearch)
	s.echo.GET("/stats", s.handleStats)

	s.echo.GET("/dir", s.handleGetDir)
	s.echo.POST("/dir", s.handlePostDir)

	s.echo.POST("/copy", s.handleCopyArbitrary)
	s.echo.POST("/save", s.handleSave)
	s.echo.GET("/export", s.handleExport)
	s.echo.POST("/import", s.handleImport)

	s.echo.GET("/events", s.handleEvents)
}

// Start begins listening on loopback:port (blocks until Shutdown or a
// listener error).
func (s *Server) Start(port int) error {
	addr := "127.0.0.1:" + strconv.Itoa(port)
	s.log.Log("info", "api listening on "+addr)
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests up to the given timeout (spec §4.7).
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler maps an apperr.Kind to a status code and the {"error": ...}
// envelope (spec §6.1, §7).
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()

	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	} else {
		kind := apperr.KindOf(err)
		status = kind.HTTPStatus()
		if status == http.StatusInternalServerError {
			s.log.Log("error", err.Error())
			msg = "internal error"
		}
	}

	_ = c.JSON(status, map[string]string{"error": msg})
}
