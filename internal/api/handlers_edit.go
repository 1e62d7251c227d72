package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/hash"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/Explosion-Scratch/clippy-sub000/internal/plugin"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
	"github.com/Explosion-Scratch/clippy-sub000/internal/wire"
)

// handleItemEdit implements PATCH /item/:sel (spec §6.1): the request body
// is {<plugin_id>: <new_payload>}; replacing one or more formats always
// forks a new entry under a new hash, leaving the original untouched
// (entries are immutable except last_seen/copy_count, per §3).
func (s *Server) handleItemEdit(c echo.Context) error {
	rec, err := s.resolve(c)
	if err != nil {
		return err
	}
	existing, err := s.store.Read(rec.Hash)
	if err != nil {
		return err
	}

	var patch map[string]json.RawMessage
	if err := c.Bind(&patch); err != nil {
		return apperr.Wrap(apperr.KindValidation, "parse edit body", err)
	}
	if len(patch) == 0 {
		return apperr.New(apperr.KindValidation, "edit body must name at least one format")
	}

	next := existing.Clone()

	sidePayloads := make(map[string][]byte)
	var pairs []hash.Pair
	var searchParts []string

	for id, raw := range patch {
		p, ok := s.registry.ByID(id)
		if !ok {
			return apperr.New(apperr.KindValidation, "unknown format id "+id)
		}
		rc, err := rawClipboardFor(id, raw)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "decode new payload for "+id, err)
		}
		ext, err := p.Extract(rc)
		if err != nil {
			return apperr.Wrap(apperr.KindPlugin, "re-extract "+id, err)
		}
		fr := model.FormatRecord{Metadata: ext.Metadata, ByteSize: int64(len(ext.Payload))}
		if int64(len(ext.Payload)) <= s.store.InlineThreshold {
			fr.InlineData = ext.Payload
		} else {
			imgExt, _ := ext.Metadata["ext"].(string)
			fr.Path = store.SideFileName(id, imgExt)
			sidePayloads[id] = ext.Payload
		}
		next.Plugins[id] = fr
	}

	claimed := make(map[string]bool, len(next.Plugins))
	for id, fr := range next.Plugins {
		claimed[id] = true
		payload := fr.InlineData
		if payload == nil {
			payload = sidePayloads[id]
		}
		pairs = append(pairs, hash.Pair{PluginID: id, Payload: payload})
		if p, ok := s.registry.ByID(id); ok {
			if text, ok := p.Textify(payload, fr.Metadata); ok {
				searchParts = append(searchParts, text)
			}
		}
	}

	next.Hash = hash.Fingerprint(pairs)
	now := time.Now()
	next.FirstSeen = now
	next.LastSeen = now
	next.CopyCount = 0
	next.Sources = []string{"edit"}
	next.Kind = s.registry.KindFor(claimed)

	var totalBytes int64
	for _, fr := range next.Plugins {
		totalBytes += fr.ByteSize
	}
	next.ByteSize = totalBytes
	next.Summary = s.summarize(next, claimed)

	if err := s.store.WriteNew(next, sidePayloads); err != nil {
		return err
	}
	searchText := joinParts(searchParts)
	s.index.Upsert(index.FromEntry(next, searchText))
	s.index.Broadcaster().Publish(next.Hash)

	return c.JSON(http.StatusOK, wire.FromEntry(next))
}

// summarize mirrors the watcher's priority-order summary pick for a
// freshly forked entry.
func (s *Server) summarize(e *model.Entry, claimed map[string]bool) string {
	for _, p := range s.registry.Ordered() {
		if !claimed[p.ID()] {
			continue
		}
		fr := e.Plugins[p.ID()]
		return p.Summarize(fr.InlineData, fr.Metadata)
	}
	return ""
}

func joinParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// rawClipboardFor decodes one PATCH payload into the RawClipboard shape
// the named plugin's Extract expects, reusing the same extraction path
// the watcher uses for a live capture.
func rawClipboardFor(pluginID string, raw json.RawMessage) (*plugin.RawClipboard, error) {
	switch pluginID {
	case "text", "html", "rtf":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		rc := &plugin.RawClipboard{}
		switch pluginID {
		case "text":
			rc.Text = []byte(s)
		case "html":
			rc.HTML = []byte(s)
		case "rtf":
			rc.RTF = []byte(s)
		}
		return rc, nil
	case "image":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		return &plugin.RawClipboard{Image: data}, nil
	case "files":
		var paths []string
		if err := json.Unmarshal(raw, &paths); err != nil {
			return nil, err
		}
		return &plugin.RawClipboard{Files: paths}, nil
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return &plugin.RawClipboard{Text: []byte(s)}, nil
		}
		return &plugin.RawClipboard{Text: raw}, nil
	}
}
