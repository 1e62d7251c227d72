// Package index implements the in-memory query surface (spec §4.4): an
// ordered record sequence kept in sync with the store, plus filter/search/
// sort/paginate operators applied to a copy of that sequence.
package index

import (
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

// Record is the index's view of one entry — everything needed to filter,
// search and sort without touching the store.
type Record struct {
	Hash       string
	FirstSeen  time.Time
	LastSeen   time.Time
	CopyCount  int64
	Kind       model.Kind
	ByteSize   int64
	Summary    string
	Sources    []string
	PluginIDs  []string
	SearchText string
}

// FromEntry builds a Record from a stored entry and its derived search
// text (computed by the caller via the plugin registry's Textify).
func FromEntry(e *model.Entry, searchText string) *Record {
	return &Record{
		Hash:       e.Hash,
		FirstSeen:  e.FirstSeen,
		LastSeen:   e.LastSeen,
		CopyCount:  e.CopyCount,
		Kind:       e.Kind,
		ByteSize:   e.ByteSize,
		Summary:    e.Summary,
		Sources:    append([]string(nil), e.Sources...),
		PluginIDs:  e.PluginIDs(),
		SearchText: searchText,
	}
}

func (r *Record) clone() *Record {
	cp := *r
	cp.Sources = append([]string(nil), r.Sources...)
	cp.PluginIDs = append([]string(nil), r.PluginIDs...)
	return &cp
}

func (r *Record) hasPlugin(id string) bool {
	for _, p := range r.PluginIDs {
		if p == id {
			return true
		}
	}
	return false
}

func (r *Record) hasSource(s string) bool {
	for _, src := range r.Sources {
		if src == s {
			return true
		}
	}
	return false
}
