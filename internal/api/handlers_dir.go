package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
)

// handleGetDir implements GET /dir: the active data directory, flagging a
// mismatch against the OS-default so a UI can prompt the user (§4.8).
func (s *Server) handleGetDir(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"path":        s.root,
		"isOSDefault": s.root == s.osDefaultDir,
		"osDefault":   s.osDefaultDir,
	})
}

type dirRequest struct {
	Mode string `json:"mode"`
	Path string `json:"path"`
}

// handlePostDir implements POST /dir (spec §4.3, §6.1): streams NDJSON
// progress frames terminated by a final summary frame.
func (s *Server) handlePostDir(c echo.Context) error {
	var req dirRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "parse /dir body", err)
	}
	if req.Path == "" {
		return apperr.New(apperr.KindValidation, "path is required")
	}

	switch store.RelocateMode(req.Mode) {
	case store.ModeUpdate:
		if err := store.ValidateUpdatePath(req.Path); err != nil {
			return apperr.Wrap(apperr.KindConflict, "validate update path", err)
		}
		if s.onRelocate != nil {
			if err := s.onRelocate(req.Path); err != nil {
				return apperr.Wrap(apperr.KindIO, "switch data directory", err)
			}
		}
		return c.JSON(http.StatusOK, map[string]any{"mode": "update", "path": req.Path})

	case store.ModeMove:
		return s.streamMove(c, req.Path)

	default:
		return apperr.ErrInvalidMode
	}
}

func (s *Server) streamMove(c echo.Context, newRoot string) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)
	enc := json.NewEncoder(c.Response())

	cancel := make(chan struct{})
	err := s.store.Move(newRoot, cancel, func(p store.RelocateProgress) {
		_ = enc.Encode(p)
		c.Response().Flush()
	})

	summary := map[string]any{"done": true}
	if err != nil {
		summary["error"] = err.Error()
	} else if s.onRelocate != nil {
		if rerr := s.onRelocate(newRoot); rerr != nil {
			summary["error"] = rerr.Error()
		}
	}
	_ = enc.Encode(summary)
	c.Response().Flush()
	return nil
}
