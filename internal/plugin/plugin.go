// Package plugin implements the per-format capability set (spec §4.2):
// probe, extract, reconstruct, summarize, textify, render_preview. Five
// plugins ship by default, registered with a static priority table used to
// resolve an entry's Kind and to order GET /item/:sel/preview's
// formatsOrder: files > image > rtf > html > text.
package plugin

import "github.com/Explosion-Scratch/clippy-sub000/internal/model"

// RawClipboard is the normalized view of whatever the OS clipboard holds on
// one watcher tick, before any plugin has run. Fields are nil/empty when
// that representation wasn't available.
type RawClipboard struct {
	Text      []byte
	HTML      []byte
	RTF       []byte
	Image     []byte // already-decoded/re-encoded PNG bytes
	Files     []string
	SourceApp string // identifier of the application that owns the clipboard, if known
}

// Extraction is the result of a plugin claiming and normalizing a capture.
type Extraction struct {
	Payload  []byte
	Metadata map[string]any
	// SourcePath names an existing file the capture came from. The store
	// does not read it: the entry's side-file is always written from
	// Payload.
	SourcePath string
}

// Placement is what a plugin hands back to the watcher to write to the OS
// clipboard during copy-back (spec §4.5).
type Placement struct {
	// Format is a clipboard.Format value from golang.design/x/clipboard
	// when Supported is true; Text and Image are the only two the OS
	// binding can place directly.
	Format    int
	Data      []byte
	Supported bool
	Reason    string // set when Supported is false, for logging
}

// Plugin is the capability set owned by one format.
type Plugin interface {
	ID() string
	Kind() model.Kind
	// Priority orders plugins for Kind resolution and formatsOrder;
	// smaller values win ties (files=0 ... text=4).
	Priority() int

	Probe(raw *RawClipboard) bool
	Extract(raw *RawClipboard) (Extraction, error)
	Reconstruct(payload []byte, metadata map[string]any) (Placement, error)
	Summarize(payload []byte, metadata map[string]any) string
	// Textify returns a textual projection for full-text indexing, or
	// ("", false) when the format has no meaningful text projection.
	Textify(payload []byte, metadata map[string]any) (string, bool)
	RenderPreview(payload []byte, metadata map[string]any, interactive bool) string
}

// Logger is the narrow logging dependency plugins accept, matching the
// shape used across the teacher codebase.
type Logger interface {
	Log(level, message string)
}

// Registry holds the registered plugins, ordered by priority.
type Registry struct {
	plugins []Plugin
}

// NewDefaultRegistry builds the registry with the five shipped plugins.
func NewDefaultRegistry() *Registry {
	r := &Registry{}
	r.Register(NewFilesPlugin())
	r.Register(NewImagePlugin())
	r.Register(NewRTFPlugin())
	r.Register(NewHTMLPlugin())
	r.Register(NewTextPlugin())
	return r
}

// Register adds a plugin and keeps the slice sorted by priority.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	for i := len(r.plugins) - 1; i > 0 && r.plugins[i].Priority() < r.plugins[i-1].Priority(); i-- {
		r.plugins[i], r.plugins[i-1] = r.plugins[i-1], r.plugins[i]
	}
}

// Ordered returns the registered plugins, highest priority (files) first.
func (r *Registry) Ordered() []Plugin {
	return r.plugins
}

// ByID looks up a registered plugin.
func (r *Registry) ByID(id string) (Plugin, bool) {
	for _, p := range r.plugins {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// KindFor returns the Kind of the highest-priority plugin among claimedIDs.
func (r *Registry) KindFor(claimedIDs map[string]bool) model.Kind {
	for _, p := range r.plugins {
		if claimedIDs[p.ID()] {
			return p.Kind()
		}
	}
	return model.KindOther
}

// FormatsOrder filters the priority order down to the plugin ids present,
// for the preview envelope (spec §4.6).
func (r *Registry) FormatsOrder(present map[string]bool) []string {
	out := make([]string, 0, len(present))
	for _, p := range r.plugins {
		if present[p.ID()] {
			out = append(out, p.ID())
		}
	}
	return out
}
