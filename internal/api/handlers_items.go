package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	cache "github.com/Explosion-Scratch/clippy-sub000/internal/previewcache"
	"github.com/Explosion-Scratch/clippy-sub000/internal/wire"
)

func (s *Server) handleDocs(c echo.Context) error {
	return c.String(http.StatusOK, docsText)
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"version":         Version,
		"instanceId":      s.instanceID,
		"apiStartTime":    s.startTime.UnixMilli(),
		"apiStartTimeIso": s.startTime.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMtime(c echo.Context) error {
	hash, ok := s.index.NewestHash()
	if !ok {
		return c.JSON(http.StatusOK, map[string]any{"lastModified": nil, "id": nil})
	}
	rec, _ := s.index.Get(hash)
	var lastModified any
	if rec != nil {
		lastModified = rec.LastSeen.UnixMilli()
	}
	return c.JSON(http.StatusOK, map[string]any{"lastModified": lastModified, "id": hash})
}

func parseListQuery(c echo.Context, defaultCount int) index.Query {
	q := index.Query{
		Sort:   index.SortMode(c.QueryParam("sort")),
		Order:  c.QueryParam("order"),
		Offset: atoiOr(c.QueryParam("offset"), 0),
		Count:  atoiOr(c.QueryParam("count"), defaultCount),
	}
	if ids := c.QueryParam("ids"); ids != "" {
		q.IDs = strings.Split(ids, ",")
	}
	if formats := c.QueryParam("formats"); formats != "" {
		q.Formats = strings.Split(formats, ",")
	}
	return q
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// handleItems implements GET /items (spec §6.1): offset/count/ids/sort/
// order/formats, defaulting count to 50.
func (s *Server) handleItems(c echo.Context) error {
	q := parseListQuery(c, 50)
	recs, total, err := s.index.Run(q)
	if err != nil {
		return err
	}
	items := make([]wire.Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, wire.FromRecord(r))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": total})
}

func (s *Server) resolve(c echo.Context) (*index.Record, error) {
	return s.index.ResolveSelector(c.Param("sel"))
}

// handleItemSummary implements GET /item/:sel (spec §6.1): `formats` query
// param restricts which plugin metadata keys are returned.
func (s *Server) handleItemSummary(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	item := wire.FromRecord(rec)
	if formats := c.QueryParam("formats"); formats != "" {
		allowed := make(map[string]bool)
		for _, f := range strings.Split(formats, ",") {
			allowed[f] = true
		}
		for id := range item.Formats {
			if !allowed[id] {
				delete(item.Formats, id)
			}
		}
	}
	return c.JSON(http.StatusOK, item)
}

// handleItemData implements GET /item/:sel/data: every format body,
// images as base64 data URLs.
func (s *Server) handleItemData(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	e, err := s.store.Read(rec.Hash)
	if err != nil {
		return err
	}
	item := wire.FromEntry(e)
	for id, fr := range e.Plugins {
		payload, rerr := s.store.ReadSideFile(e.Hash, fr)
		if rerr != nil {
			continue
		}
		if id == "image" {
			mime, _ := fr.Metadata["mime"].(string)
			if mime == "" {
				mime = "application/octet-stream"
			}
			item.Formats[id] = wire.Format{
				Path:     "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload),
				Metadata: fr.Metadata,
				ByteSize: fr.ByteSize,
			}
			continue
		}
		item.Formats[id] = wire.Format{
			InlineData: payload,
			Metadata:   fr.Metadata,
			ByteSize:   fr.ByteSize,
		}
	}
	return c.JSON(http.StatusOK, item)
}

// handleItemText implements GET /item/:sel/text: fast text-only,
// falling back to stripped HTML when no text plugin claimed the entry.
func (s *Server) handleItemText(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	e, err := s.store.Read(rec.Hash)
	if err != nil {
		return err
	}
	if fr, ok := e.Plugins["text"]; ok {
		payload, rerr := s.store.ReadSideFile(e.Hash, fr)
		if rerr == nil {
			return c.JSON(http.StatusOK, map[string]any{"text": string(payload), "isRaw": true})
		}
	}
	for _, id := range []string{"html", "rtf"} {
		fr, ok := e.Plugins[id]
		if !ok {
			continue
		}
		p, ok := s.registry.ByID(id)
		if !ok {
			continue
		}
		payload, rerr := s.store.ReadSideFile(e.Hash, fr)
		if rerr != nil {
			continue
		}
		if text, ok := p.Textify(payload, fr.Metadata); ok {
			return c.JSON(http.StatusOK, map[string]any{"text": text, "isRaw": false})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"text": e.Summary, "isRaw": false})
}

// handleItemPreview implements GET /item/:sel/preview (spec §4.6), caching
// rendered HTML per (hash, interactive) in the preview cache.
func (s *Server) handleItemPreview(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	interactive := c.QueryParam("interactive") == "true" || c.QueryParam("interactive") == "1"

	cacheKey := cache.Key(rec.Hash, interactive)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, cached)
	}

	e, err := s.store.Read(rec.Hash)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(e.Plugins))
	for id := range e.Plugins {
		present[id] = true
	}
	data := make(map[string]map[string]any, len(e.Plugins))
	for id, fr := range e.Plugins {
		p, ok := s.registry.ByID(id)
		if !ok {
			continue
		}
		payload, rerr := s.store.ReadSideFile(e.Hash, fr)
		if rerr != nil {
			continue
		}
		html := p.RenderPreview(payload, fr.Metadata, interactive)
		var text any
		if t, ok := p.Textify(payload, fr.Metadata); ok {
			text = t
		}
		data[id] = map[string]any{"html": html, "text": text}
	}

	body := map[string]any{
		"id":           e.Hash,
		"kind":         e.Kind,
		"formatsOrder": s.registry.FormatsOrder(present),
		"data":         data,
	}
	blob, merr := json.Marshal(body)
	if merr == nil {
		s.cache.Put(cacheKey, blob)
	}
	return c.JSON(http.StatusOK, body)
}

// handleItemCopy implements POST /item/:sel/copy.
func (s *Server) handleItemCopy(c echo.Context) error {
	e, err := s.watcher.Paste(c.Param("sel"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wire.FromEntry(e))
}

// handleItemPaste implements POST /item/:sel/paste: same as copy, then the
// external shell fires the simulated paste keystroke after the clipboard
// write completes (spec §4.5); the handler's responsibility ends at the
// clipboard write.
func (s *Server) handleItemPaste(c echo.Context) error {
	e, err := s.watcher.Paste(c.Param("sel"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wire.FromEntry(e))
}

// handleItemBump implements PUT /item/:sel: bump copy_count only, no
// clipboard write.
func (s *Server) handleItemBump(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	e, err := s.store.Read(rec.Hash)
	if err != nil {
		return err
	}
	e.CopyCount++
	if err := s.store.UpdateMeta(e); err != nil {
		return err
	}
	s.index.Upsert(index.FromEntry(e, rec.SearchText))
	return c.JSON(http.StatusOK, wire.FromEntry(e))
}

// handleItemDelete implements DELETE /item/:sel.
func (s *Server) handleItemDelete(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	if err := s.store.Delete(rec.Hash); err != nil {
		return err
	}
	s.index.Delete(rec.Hash)
	s.cache.Invalidate(rec.Hash)
	return c.NoContent(http.StatusNoContent)
}

const docsText = `clippy-sub000 clipboard history API

GET    /                    this document
GET    /version             {version, apiStartTime, apiStartTimeIso}
GET    /mtime                {lastModified, id}
GET    /items                list items: offset, count, ids, sort, order, formats
GET    /item/:sel            summary
GET    /item/:sel/data       full item, all format bodies
GET    /item/:sel/text       fast text-only projection
GET    /item/:sel/preview    rendered preview envelope: interactive=<bool>
POST   /item/:sel/copy       write to OS clipboard, bump copyCount
POST   /item/:sel/paste      same as copy, then signal paste
PUT    /item/:sel            bump copyCount only
PATCH  /item/:sel            replace format payloads, forks a new entry
DELETE /item/:sel            remove entry
GET    /search               query: query, offset, count, formats, sort, order
GET    /stats                totals and per-day histogram
GET    /dir                  current data directory
POST   /dir                  relocate: {mode: "move"|"update", path}
POST   /copy                 write arbitrary payload to clipboard, do not store
POST   /save                 ingest item as if captured
GET    /export               {version, recommendedFileName, data}
POST   /import               bulk ingest
GET    /events                live websocket stream of changed hashes
`
