// Package wire translates between the Go-idiomatic internal model
// (internal/model, field names hash/plugins/firstSeen/...) and the HTTP
// surface's item envelope. Per the reference corpus's two interchangeable
// envelopes, the API accepts both field-name sets on input (hash/offset/
// timestamp/plugins and id/index/date/formats) but always emits the
// latter (spec §9 Open Question).
package wire

import (
	"encoding/json"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

// Format is one plugin's payload in the emitted envelope.
type Format struct {
	InlineData []byte         `json:"inlineData,omitempty"`
	Path       string         `json:"path,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ByteSize   int64          `json:"byteSize"`
}

// Item is the external wire envelope emitted by every route that returns
// an entry: id/date/formats terminology, never hash/plugins.
type Item struct {
	ID        string            `json:"id"`
	FirstDate time.Time         `json:"firstDate"`
	Date      time.Time         `json:"date"`
	CopyCount int64             `json:"copyCount"`
	Kind      model.Kind        `json:"kind"`
	ByteSize  int64             `json:"byteSize"`
	Summary   string            `json:"summary"`
	Sources   []string          `json:"sources"`
	Formats   map[string]Format `json:"formats"`
}

// FromEntry builds the emitted envelope from a stored entry.
func FromEntry(e *model.Entry) Item {
	formats := make(map[string]Format, len(e.Plugins))
	for id, fr := range e.Plugins {
		formats[id] = Format{
			InlineData: fr.InlineData,
			Path:       fr.Path,
			Metadata:   fr.Metadata,
			ByteSize:   fr.ByteSize,
		}
	}
	return Item{
		ID:        e.Hash,
		FirstDate: e.FirstSeen,
		Date:      e.LastSeen,
		CopyCount: e.CopyCount,
		Kind:      e.Kind,
		ByteSize:  e.ByteSize,
		Summary:   e.Summary,
		Sources:   e.Sources,
		Formats:   formats,
	}
}

// FromRecord builds a list-view envelope (no format bodies) from an index
// record, for GET /items and GET /search.
func FromRecord(r *index.Record) Item {
	formats := make(map[string]Format, len(r.PluginIDs))
	for _, id := range r.PluginIDs {
		formats[id] = Format{}
	}
	return Item{
		ID:        r.Hash,
		FirstDate: r.FirstSeen,
		Date:      r.LastSeen,
		CopyCount: r.CopyCount,
		Kind:      r.Kind,
		ByteSize:  r.ByteSize,
		Summary:   r.Summary,
		Sources:   r.Sources,
		Formats:   formats,
	}
}

// inboundItem is the superset of both field-name sets accepted on input
// (POST /save, POST /import, POST /copy). json.Unmarshal leaves a field
// zero-valued when its key is absent, so accepting both spellings is just
// a matter of declaring both and preferring whichever is non-zero.
type inboundItem struct {
	Hash string `json:"hash"`
	ID   string `json:"id"`

	FirstSeen time.Time `json:"firstSeen"`
	FirstDate time.Time `json:"firstDate"`

	Timestamp time.Time `json:"timestamp"`
	Date      time.Time `json:"date"`

	CopyCount int64  `json:"copyCount"`
	Kind      string `json:"kind"`
	ByteSize  int64  `json:"byteSize"`
	Summary   string `json:"summary"`
	Sources   []string `json:"sources"`

	Plugins map[string]json.RawMessage `json:"plugins"`
	Formats map[string]json.RawMessage `json:"formats"`
}

// inboundFormat mirrors Format but tolerant of either key spelling for the
// payload bytes, matching the same dual-envelope policy at the per-format
// level.
type inboundFormat struct {
	InlineData []byte         `json:"inlineData"`
	Data       []byte         `json:"data"`
	Path       string         `json:"path"`
	Metadata   map[string]any `json:"metadata"`
	ByteSize   int64          `json:"byteSize"`
}

// ParseItem decodes a request body accepting either field-name set into a
// model.Entry. Hash is preserved only for the caller to ignore where the
// spec says so (POST /save "hash in request ignored").
func ParseItem(data []byte) (*model.Entry, error) {
	var in inboundItem
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}

	e := &model.Entry{
		Hash:      firstNonEmpty(in.Hash, in.ID),
		FirstSeen: firstNonZeroTime(in.FirstSeen, in.FirstDate),
		LastSeen:  firstNonZeroTime(in.Timestamp, in.Date),
		CopyCount: in.CopyCount,
		Kind:      model.Kind(in.Kind),
		ByteSize:  in.ByteSize,
		Summary:   in.Summary,
		Sources:   in.Sources,
		Plugins:   make(map[string]model.FormatRecord),
	}

	raw := in.Plugins
	if len(raw) == 0 {
		raw = in.Formats
	}
	for id, msg := range raw {
		var f inboundFormat
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		e.Plugins[id] = model.FormatRecord{
			InlineData: firstNonEmptyBytes(f.InlineData, f.Data),
			Path:       f.Path,
			Metadata:   f.Metadata,
			ByteSize:   f.ByteSize,
		}
	}
	return e, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonEmptyBytes(a, b []byte) []byte {
	if len(a) > 0 {
		return a
	}
	return b
}

func firstNonZeroTime(a, b time.Time) time.Time {
	if !a.IsZero() {
		return a
	}
	return b
}
