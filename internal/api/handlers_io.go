package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/hash"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
	"github.com/Explosion-Scratch/clippy-sub000/internal/wire"
)

// handleCopyArbitrary implements POST /copy: write a full-item envelope's
// formats to the OS clipboard without storing anything.
func (s *Server) handleCopyArbitrary(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "read /copy body", err)
	}
	e, err := wire.ParseItem(body)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "parse /copy body", err)
	}
	for id, fr := range e.Plugins {
		p, ok := s.registry.ByID(id)
		if !ok {
			continue
		}
		placement, err := p.Reconstruct(fr.InlineData, fr.Metadata)
		if err != nil || !placement.Supported {
			continue
		}
		if err := s.watcher.WriteClipboardFormat(placement); err != nil {
			return apperr.Wrap(apperr.KindIO, "write clipboard", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// handleSave implements POST /save (spec §6.1): ingest an item as if it
// had been captured; the hash in the request body is ignored and
// recomputed from the formats.
func (s *Server) handleSave(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "read /save body", err)
	}
	e, err := wire.ParseItem(body)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "parse /save body", err)
	}
	e.Sources = []string{"save"}
	stored, err := s.ingest(e)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wire.FromEntry(stored))
}

// ingest recomputes e.Hash from its formats (ignoring whatever hash the
// caller supplied), then either merges into an existing entry with that
// hash or persists e as new.
func (s *Server) ingest(e *model.Entry) (*model.Entry, error) {
	pairs := make([]hash.Pair, 0, len(e.Plugins))
	for id, fr := range e.Plugins {
		payload := fr.InlineData
		pairs = append(pairs, hash.Pair{PluginID: id, Payload: payload})
	}
	e.Hash = hash.Fingerprint(pairs)

	if rec, ok := s.index.Get(e.Hash); ok {
		existing, err := s.store.Read(e.Hash)
		if err != nil {
			return nil, err
		}
		existing.LastSeen = time.Now()
		for _, src := range e.Sources {
			existing.AddSource(src)
		}
		if err := s.store.UpdateMeta(existing); err != nil {
			return nil, err
		}
		s.index.Upsert(index.FromEntry(existing, rec.SearchText))
		return existing, nil
	}

	now := time.Now()
	if e.FirstSeen.IsZero() {
		e.FirstSeen = now
	}
	if e.LastSeen.IsZero() {
		e.LastSeen = now
	}

	claimed := make(map[string]bool, len(e.Plugins))
	sidePayloads := make(map[string][]byte)
	var searchParts []string
	var totalBytes int64
	for id, fr := range e.Plugins {
		claimed[id] = true
		if int64(len(fr.InlineData)) > s.store.InlineThreshold {
			imgExt, _ := fr.Metadata["ext"].(string)
			fr.Path = store.SideFileName(id, imgExt)
			sidePayloads[id] = fr.InlineData
			fr.InlineData = nil
			e.Plugins[id] = fr
		}
		totalBytes += fr.ByteSize
		if p, ok := s.registry.ByID(id); ok {
			if text, ok := p.Textify(fr.InlineData, fr.Metadata); ok {
				searchParts = append(searchParts, text)
			}
		}
	}
	if e.Kind == "" {
		e.Kind = s.registry.KindFor(claimed)
	}
	if e.ByteSize == 0 {
		e.ByteSize = totalBytes
	}
	if e.Summary == "" {
		e.Summary = s.summarize(e, claimed)
	}

	if err := s.store.WriteNew(e, sidePayloads); err != nil {
		return nil, err
	}
	s.index.Upsert(index.FromEntry(e, joinParts(searchParts)))
	s.index.Broadcaster().Publish(e.Hash)
	return e, nil
}

// handleExport implements GET /export (spec §6.3): a JSON-encoded array of
// full-item envelopes.
func (s *Server) handleExport(c echo.Context) error {
	recs, _, err := s.index.Run(index.Query{})
	if err != nil {
		return err
	}
	items := make([]wire.Item, 0, len(recs))
	for _, r := range recs {
		e, err := s.store.Read(r.Hash)
		if err != nil {
			continue
		}
		for id, fr := range e.Plugins {
			payload, rerr := s.store.ReadSideFile(e.Hash, fr)
			if rerr == nil {
				fr.InlineData = payload
				e.Plugins[id] = fr
			}
		}
		items = append(items, wire.FromEntry(e))
	}
	data, err := json.Marshal(items)
	if err != nil {
		return apperr.Wrap(apperr.KindIO, "marshal export", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"version":             Version,
		"recommendedFileName": "clipboard-history-export.json",
		"data":                string(data),
	})
}

type importResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// handleImport implements POST /import (spec §6.1, §6.3): idempotent bulk
// ingest. Duplicates (same recomputed hash, already indexed) are skipped;
// entries whose recomputed hash disagrees with the caller-supplied hash
// are counted as errors; unknown plugin ids are dropped silently.
func (s *Server) handleImport(c echo.Context) error {
	var req struct {
		Data string `json:"data"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "parse /import body", err)
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal([]byte(req.Data), &rawItems); err != nil {
		return apperr.Wrap(apperr.KindValidation, "parse /import data array", err)
	}

	result := importResult{Errors: []string{}}
	for _, raw := range rawItems {
		e, err := wire.ParseItem(raw)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		claimedHash := e.Hash
		e.Sources = []string{"import"}

		for id := range e.Plugins {
			if _, ok := s.registry.ByID(id); !ok {
				delete(e.Plugins, id)
			}
		}

		pairs := make([]hash.Pair, 0, len(e.Plugins))
		for id, fr := range e.Plugins {
			pairs = append(pairs, hash.Pair{PluginID: id, Payload: fr.InlineData})
		}
		recomputed := hash.Fingerprint(pairs)
		if claimedHash != "" && claimedHash != recomputed {
			result.Errors = append(result.Errors, "hash mismatch for "+claimedHash)
			continue
		}

		if _, ok := s.index.Get(recomputed); ok {
			result.Skipped++
			continue
		}

		if _, err := s.ingest(e); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Imported++
	}

	return c.JSON(http.StatusOK, result)
}
