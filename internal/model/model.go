// Package model defines the in-memory/on-disk representation of a clipboard
// history entry (spec §3). Field names here follow the spec's "internal
// terminology" (hash, plugins, ...); internal/wire translates to and from
// the external wire envelope.
package model

import "time"

// Kind is the coarse classification of an entry, derived from the
// highest-priority plugin that extracted a non-empty payload.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
	KindOther Kind = "other"
)

// FormatRecord is one plugin's serialization of a capture.
type FormatRecord struct {
	// InlineData holds the payload directly when it is small enough to live
	// in meta.json (<= inlineThresholdBytes). Mutually exclusive with Path.
	InlineData []byte `json:"inlineData,omitempty"`
	// Path is the side-file name (relative to the entry directory) holding
	// the payload when it is not inlined. Always set for image payloads.
	Path string `json:"path,omitempty"`
	// Metadata is plugin-specific (dimensions, line counts, mime, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
	// ByteSize is the raw payload size, not the stored-file size.
	ByteSize int64 `json:"byteSize"`
}

// Entry is one row in clipboard history, keyed by content Hash.
type Entry struct {
	Hash       string                  `json:"hash"`
	FirstSeen  time.Time               `json:"firstSeen"`
	LastSeen   time.Time               `json:"lastSeen"`
	CopyCount  int64                   `json:"copyCount"`
	Kind       Kind                    `json:"kind"`
	ByteSize   int64                   `json:"byteSize"`
	Summary    string                  `json:"summary"`
	Sources    []string                `json:"sources"`
	Plugins    map[string]FormatRecord `json:"plugins"`
	SearchText string                  `json:"-"` // derived, never persisted
}

// Clone returns a deep-enough copy for safe concurrent reads: slices and
// maps are copied, FormatRecord.Metadata maps are shallow-copied (their
// values are treated as immutable once written).
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Sources = append([]string(nil), e.Sources...)
	out.Plugins = make(map[string]FormatRecord, len(e.Plugins))
	for id, fr := range e.Plugins {
		cp := fr
		cp.InlineData = append([]byte(nil), fr.InlineData...)
		if fr.Metadata != nil {
			cp.Metadata = make(map[string]any, len(fr.Metadata))
			for k, v := range fr.Metadata {
				cp.Metadata[k] = v
			}
		}
		out.Plugins[id] = cp
	}
	return &out
}

// PluginIDs returns the set of plugin/format ids present on the entry, in
// no particular order.
func (e *Entry) PluginIDs() []string {
	ids := make([]string, 0, len(e.Plugins))
	for id := range e.Plugins {
		ids = append(ids, id)
	}
	return ids
}

// HasSource reports whether s is already present in Sources.
func (e *Entry) HasSource(s string) bool {
	for _, src := range e.Sources {
		if src == s {
			return true
		}
	}
	return false
}

// AddSource appends s to Sources if not already present (first-writer wins,
// de-duplicated, per §3).
func (e *Entry) AddSource(s string) {
	if !e.HasSource(s) {
		e.Sources = append(e.Sources, s)
	}
}
