// Package watcher implements the long-running clipboard poll loop (spec
// §4.5): snapshot, probe/extract, fingerprint, dedupe-or-insert, broadcast.
// Copy-back (paste) shares its clipboard-write path and mutex with the
// poll tick so the two are mutually exclusive (spec §5).
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cenkalti/backoff/v4"
	clipboard "golang.design/x/clipboard"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/hash"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/Explosion-Scratch/clippy-sub000/internal/plugin"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
)

// Watcher owns the OS clipboard binding, the plugin registry, and the
// store/index pair it keeps synchronized.
type Watcher struct {
	store    *store.Store
	index    *index.Index
	registry *plugin.Registry
	log      logging.Logger

	// clipMu serializes clipboard access between the poll tick and
	// Paste/Copy, per spec §5 "touched only by the watcher's tick or by a
	// paste/copy handler; these two are mutually exclusive via a single
	// mutex."
	clipMu sync.Mutex

	excludedApps []string
	pollInterval time.Duration

	lastSignature uint64
	haveSignature bool

	cancel context.CancelFunc
	done   chan struct{}

	// Fatal receives an error if the poll loop exhausts its panic-restart
	// budget (spec §4.7: restart on panic, give up after 3 times in 60s).
	// Buffered 1 so the send never blocks the loop goroutine.
	Fatal chan error

	panicsMu sync.Mutex
	panics   []time.Time
}

// New constructs a Watcher. It does not start polling until Start is
// called.
func New(st *store.Store, ix *index.Index, reg *plugin.Registry, log logging.Logger, pollInterval time.Duration, excludedApps []string) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Watcher{
		store:        st,
		index:        ix,
		registry:     reg,
		log:          log,
		excludedApps: excludedApps,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
		Fatal:        make(chan error, 1),
	}
}

// restartWindow and maxRestarts bound how many panics the poll loop
// tolerates before giving up (spec §4.7).
const (
	restartWindow = 60 * time.Second
	maxRestarts   = 3
)

// recordPanic appends now and drops entries older than restartWindow,
// reporting whether the caller has exceeded maxRestarts within the window.
func (w *Watcher) recordPanic(now time.Time) bool {
	w.panicsMu.Lock()
	defer w.panicsMu.Unlock()
	cutoff := now.Add(-restartWindow)
	kept := w.panics[:0]
	for _, t := range w.panics {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.panics = append(kept, now)
	return len(w.panics) > maxRestarts
}

// SetExcludedApps updates the exclusion list, called by config hot-reload.
func (w *Watcher) SetExcludedApps(apps []string) {
	w.clipMu.Lock()
	defer w.clipMu.Unlock()
	w.excludedApps = apps
}

// SetPollInterval updates the tick period, called by config hot-reload.
// Takes effect on the next tick.
func (w *Watcher) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	w.pollInterval = d
}

// Start launches the poll loop in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("init clipboard: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(ctx)
	return nil
}

// Stop cancels the poll loop and waits for the in-flight tick to finish,
// per §4.7's "stop the watcher after its current tick".
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // never give up; this loop runs for process lifetime

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := w.tickRecovered()
			if err != nil {
				if _, ok := err.(panicError); ok {
					if w.recordPanic(time.Now()) {
						w.log.Log("error", fmt.Sprintf("poll loop panicked more than %d times in %s, giving up: %v", maxRestarts, restartWindow, err))
						select {
						case w.Fatal <- err:
						default:
						}
						return
					}
					w.log.Log("error", fmt.Sprintf("poll tick panicked, restarting: %v", err))
				}
				delay := bo.NextBackOff()
				w.log.Log("warn", fmt.Sprintf("clipboard tick failed, backing off %s: %v", delay, err))
				ticker.Reset(delay)
				continue
			}
			bo.Reset()
			ticker.Reset(w.pollInterval)
		}
	}
}

// panicError wraps a recovered panic so the loop can distinguish it from an
// ordinary tick error for restart-budget accounting.
type panicError struct{ v interface{} }

func (p panicError) Error() string { return fmt.Sprintf("recovered panic: %v", p.v) }

// tickRecovered runs tick under a recover so a panic inside a plugin's
// Probe/Extract (third-party format parsing, e.g. excelize/mimetype)
// doesn't take the whole process down.
func (w *Watcher) tickRecovered() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	return w.tick()
}

// tick runs one snapshot/probe/extract/dedupe pass (spec §4.5 steps 1-4).
func (w *Watcher) tick() error {
	w.clipMu.Lock()
	defer w.clipMu.Unlock()

	raw, err := snapshotClipboard()
	if err != nil {
		return err
	}
	if raw == nil {
		return nil // nothing on the clipboard, or read failed transiently
	}
	if w.isExcluded(raw.SourceApp) {
		return nil
	}

	pairs, extractions := w.extractAll(raw)
	if len(pairs) == 0 {
		return nil // step 3: empty format set, do nothing
	}

	sig := hash.QuickSignature(pairs)
	if w.haveSignature && sig == w.lastSignature {
		return nil // unchanged since last tick, skip the fingerprint+store round trip
	}
	w.lastSignature, w.haveSignature = sig, true

	h := hash.Fingerprint(pairs)
	now := time.Now()

	if existing, ok := w.index.Get(h); ok {
		return w.touchExisting(existing, now)
	}
	return w.insertNew(h, now, extractions)
}

func (w *Watcher) touchExisting(rec *index.Record, now time.Time) error {
	e, err := w.store.Read(rec.Hash)
	if err != nil {
		return err
	}
	e.LastSeen = now
	e.AddSource("clipboard")
	if err := w.store.UpdateMeta(e); err != nil {
		return err
	}
	w.index.Upsert(index.FromEntry(e, rec.SearchText))
	w.index.Broadcaster().Publish(e.Hash)
	return nil
}

func (w *Watcher) insertNew(h string, now time.Time, extractions map[string]plugin.Extraction) error {
	e := &model.Entry{
		Hash:      h,
		FirstSeen: now,
		LastSeen:  now,
		Sources:   []string{"clipboard"},
		Plugins:   make(map[string]model.FormatRecord),
	}

	claimed := make(map[string]bool, len(extractions))
	sidePayloads := make(map[string][]byte)
	var searchParts []string
	var totalBytes int64

	for id, ext := range extractions {
		claimed[id] = true
		fr := model.FormatRecord{Metadata: ext.Metadata, ByteSize: int64(len(ext.Payload))}
		if int64(len(ext.Payload)) <= w.store.InlineThreshold {
			fr.InlineData = ext.Payload
		} else {
			imgExt, _ := ext.Metadata["ext"].(string)
			fr.Path = store.SideFileName(id, imgExt)
			sidePayloads[id] = ext.Payload
		}
		e.Plugins[id] = fr
		totalBytes += fr.ByteSize

		if p, ok := w.registry.ByID(id); ok {
			if text, ok := p.Textify(ext.Payload, ext.Metadata); ok {
				searchParts = append(searchParts, text)
			}
		}
	}

	e.Kind = w.registry.KindFor(claimed)
	e.ByteSize = totalBytes
	e.Summary = w.summarize(e, claimed)

	if err := w.store.WriteNew(e, sidePayloads); err != nil {
		return err
	}

	searchText := joinSearchParts(searchParts)
	w.index.Upsert(index.FromEntry(e, searchText))
	w.index.Broadcaster().Publish(e.Hash)
	return nil
}

// summarize picks the summary from the highest-priority claimed plugin.
func (w *Watcher) summarize(e *model.Entry, claimed map[string]bool) string {
	for _, p := range w.registry.Ordered() {
		if !claimed[p.ID()] {
			continue
		}
		fr := e.Plugins[p.ID()]
		return p.Summarize(fr.InlineData, fr.Metadata)
	}
	return ""
}

// extractAll runs probe/extract for every registered plugin against raw,
// returning the fingerprint pairs and the per-plugin extractions.
func (w *Watcher) extractAll(raw *plugin.RawClipboard) ([]hash.Pair, map[string]plugin.Extraction) {
	pairs := make([]hash.Pair, 0, 4)
	extractions := make(map[string]plugin.Extraction, 4)
	for _, p := range w.registry.Ordered() {
		if !p.Probe(raw) {
			continue
		}
		ext, err := p.Extract(raw)
		if err != nil {
			w.log.Log("warn", fmt.Sprintf("plugin %s extract failed: %v", p.ID(), err))
			continue
		}
		if len(ext.Payload) == 0 {
			continue
		}
		pairs = append(pairs, hash.Pair{PluginID: p.ID(), Payload: ext.Payload})
		extractions[p.ID()] = ext
	}
	return pairs, extractions
}

func (w *Watcher) isExcluded(sourceApp string) bool {
	if sourceApp == "" {
		return false
	}
	for _, pattern := range w.excludedApps {
		if pattern == sourceApp {
			return true
		}
		if ok, _ := doublestar.Match(pattern, sourceApp); ok {
			return true
		}
	}
	return false
}

func joinSearchParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// Paste reconstructs an entry and writes every claimed format into the OS
// clipboard as one transaction, then bumps copy_count (spec §4.5
// "Paste/copy-back").
func (w *Watcher) Paste(selector string) (*model.Entry, error) {
	w.clipMu.Lock()
	defer w.clipMu.Unlock()

	rec, err := w.index.ResolveSelector(selector)
	if err != nil {
		return nil, err
	}
	e, err := w.store.Read(rec.Hash)
	if err != nil {
		return nil, err
	}

	for id, fr := range e.Plugins {
		p, ok := w.registry.ByID(id)
		if !ok {
			continue
		}
		payload, err := w.store.ReadSideFile(e.Hash, fr)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindIO, "read side-file for copy-back", err)
		}
		placement, err := p.Reconstruct(payload, fr.Metadata)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindPlugin, "reconstruct "+id, err)
		}
		if !placement.Supported {
			continue
		}
		if err := writeClipboardFormat(clipboard.Format(placement.Format), placement.Data); err != nil {
			return nil, apperr.Wrap(apperr.KindIO, "write clipboard", err)
		}
	}

	e.CopyCount++
	if err := w.store.UpdateMeta(e); err != nil {
		return nil, err
	}
	w.index.Upsert(index.FromEntry(e, rec.SearchText))
	w.index.Broadcaster().Publish(e.Hash)
	return e, nil
}

// WriteClipboardFormat writes one placement to the OS clipboard under the
// same mutex as the poll tick and Paste, for callers (POST /copy) that
// write an ad-hoc payload without storing an entry.
func (w *Watcher) WriteClipboardFormat(p plugin.Placement) error {
	w.clipMu.Lock()
	defer w.clipMu.Unlock()
	return writeClipboardFormat(clipboard.Format(p.Format), p.Data)
}

func writeClipboardFormat(format clipboard.Format, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("clipboard write panic: %v", r)
		}
	}()
	clipboard.Write(format, data)
	return nil
}
