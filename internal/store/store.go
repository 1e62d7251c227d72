// Package store implements the content-addressed on-disk entry directory
// (spec §4.3): layout, atomic writes, integrity scanning, scrubbing and
// relocation. It knows nothing about plugins or querying; it persists and
// retrieves model.Entry values keyed by hash.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"github.com/ohler55/ojg/oj"
)

// Store owns one data directory rooted at Root.
type Store struct {
	Root            string
	InlineThreshold int64
	log             logging.Logger
}

// New constructs a Store. inlineThreshold is the §6.2 inlineThresholdBytes
// setting; 0 falls back to the documented default.
func New(root string, inlineThreshold int64, log logging.Logger) *Store {
	if inlineThreshold <= 0 {
		inlineThreshold = 64 * 1024
	}
	return &Store{Root: root, InlineThreshold: inlineThreshold, log: log}
}

// withEntryLock takes the advisory per-entry lock (meta.json.lock) for the
// duration of fn, per §5's "short-lived exclusive lock on the entry
// directory".
func (s *Store) withEntryLock(entryDir string, fn func() error) error {
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}
	fl := flock.New(lockPath(entryDir))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock entry: %w", err)
	}
	defer fl.Unlock()
	return fn()
}

// metaDoc mirrors model.Entry's on-disk shape. It is defined separately so
// adding transient/derived fields to model.Entry never silently leaks into
// meta.json.
type metaDoc struct {
	Hash      string                         `json:"hash"`
	FirstSeen time.Time                      `json:"firstSeen"`
	LastSeen  time.Time                      `json:"lastSeen"`
	CopyCount int64                          `json:"copyCount"`
	Kind      model.Kind                     `json:"kind"`
	ByteSize  int64                          `json:"byteSize"`
	Summary   string                         `json:"summary"`
	Sources   []string                       `json:"sources"`
	Plugins   map[string]model.FormatRecord  `json:"plugins"`
}

func toDoc(e *model.Entry) metaDoc {
	return metaDoc{
		Hash: e.Hash, FirstSeen: e.FirstSeen, LastSeen: e.LastSeen,
		CopyCount: e.CopyCount, Kind: e.Kind, ByteSize: e.ByteSize,
		Summary: e.Summary, Sources: e.Sources, Plugins: e.Plugins,
	}
}

func fromDoc(d metaDoc) *model.Entry {
	return &model.Entry{
		Hash: d.Hash, FirstSeen: d.FirstSeen, LastSeen: d.LastSeen,
		CopyCount: d.CopyCount, Kind: d.Kind, ByteSize: d.ByteSize,
		Summary: d.Summary, Sources: d.Sources, Plugins: d.Plugins,
	}
}

// WriteNew persists a brand-new entry: creates the directory, writes each
// side-file payload (for formats not inlined) to a .tmp sibling, fsyncs,
// renames, then writes meta.json the same way (spec §4.3 atomic write
// discipline). sidePayloads holds the raw bytes for every plugin id whose
// FormatRecord.Path is set (i.e. not inlined).
func (s *Store) WriteNew(e *model.Entry, sidePayloads map[string][]byte) error {
	entryDir := EntryDir(s.Root, e.Hash)
	return s.withEntryLock(entryDir, func() error {
		for id, fr := range e.Plugins {
			if fr.Path == "" {
				continue
			}
			payload, ok := sidePayloads[id]
			if !ok {
				return fmt.Errorf("missing side-file payload for plugin %q", id)
			}
			if err := s.writeSideFile(entryDir, fr.Path, payload); err != nil {
				return err
			}
		}
		return s.writeMeta(entryDir, e)
	})
}

func (s *Store) writeSideFile(entryDir, relName string, payload []byte) error {
	target := filepath.Join(entryDir, relName)
	if err := renameio.WriteFile(target, payload, 0o644); err != nil {
		return fmt.Errorf("write side-file %s: %w", relName, err)
	}
	return nil
}

func (s *Store) writeMeta(entryDir string, e *model.Entry) error {
	data, err := oj.Marshal(toDoc(e))
	if err != nil {
		return fmt.Errorf("marshal meta.json: %w", err)
	}
	if err := renameio.WriteFile(metaPath(entryDir), data, 0o644); err != nil {
		return fmt.Errorf("write meta.json: %w", err)
	}
	return nil
}

// UpdateMeta rewrites only meta.json for an existing entry (re-observation
// touch, copy-count bump); side-files are untouched.
func (s *Store) UpdateMeta(e *model.Entry) error {
	entryDir := EntryDir(s.Root, e.Hash)
	return s.withEntryLock(entryDir, func() error {
		if _, err := os.Stat(metaPath(entryDir)); err != nil {
			return apperr.Wrap(apperr.KindNotFound, "update entry", err)
		}
		return s.writeMeta(entryDir, e)
	})
}

// Read loads one entry by full hash. A directory without meta.json (or a
// meta.json that fails to parse) is reported as not-found: per spec §4.3,
// "a reader seeing a directory without meta.json treats the entry as
// non-existent".
func (s *Store) Read(hash string) (*model.Entry, error) {
	entryDir := EntryDir(s.Root, hash)
	data, err := os.ReadFile(metaPath(entryDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.KindNotFound, "entry "+hash)
		}
		return nil, apperr.Wrap(apperr.KindIO, "read entry "+hash, err)
	}
	var doc metaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "parse meta.json for "+hash, err)
	}
	return fromDoc(doc), nil
}

// ReadSideFile returns the raw bytes of a plugin's stored payload, whether
// inlined in meta.json or on a side-file.
func (s *Store) ReadSideFile(hash string, fr model.FormatRecord) ([]byte, error) {
	if fr.InlineData != nil {
		return fr.InlineData, nil
	}
	if fr.Path == "" {
		return nil, fmt.Errorf("format record has neither inline data nor path")
	}
	entryDir := EntryDir(s.Root, hash)
	data, err := os.ReadFile(filepath.Join(entryDir, fr.Path))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "read side-file", err)
	}
	return data, nil
}

// Delete removes meta.json first (making the entry invisible to readers),
// then side-files, then prunes empty parent directories (spec §4.3). The
// advisory lock lives inside entryDir, so it must be released before the
// directory itself can be removed; pruning happens after withEntryLock
// returns (and its deferred Unlock has run): the lock file is deleted
// first, then the emptied directories are pruned.
func (s *Store) Delete(hash string) error {
	entryDir := EntryDir(s.Root, hash)
	err := s.withEntryLock(entryDir, func() error {
		if err := os.Remove(metaPath(entryDir)); err != nil {
			if os.IsNotExist(err) {
				return apperr.New(apperr.KindNotFound, "entry "+hash)
			}
			return apperr.Wrap(apperr.KindIO, "delete meta.json", err)
		}
		entries, _ := os.ReadDir(entryDir)
		for _, de := range entries {
			if de.Name() == lockFileName {
				continue
			}
			_ = os.Remove(filepath.Join(entryDir, de.Name()))
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = os.Remove(lockPath(entryDir))
	s.pruneParents(entryDir)
	return nil
}

func (s *Store) pruneParents(entryDir string) {
	// entryDir = data/hh/hh/hash; its lock file is already gone by the time
	// Delete calls this, so the directory is empty and removes cleanly.
	_ = os.Remove(entryDir)
	hh2 := filepath.Dir(entryDir)
	if isEmptyDir(hh2) {
		_ = os.Remove(hh2)
		hh1 := filepath.Dir(hh2)
		if isEmptyDir(hh1) {
			_ = os.Remove(hh1)
		}
	}
}

func isEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) == 0
}
