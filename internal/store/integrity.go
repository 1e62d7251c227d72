package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"gopkg.in/yaml.v3"
)

// BrokenEntry describes one entry that failed the startup integrity scan.
type BrokenEntry struct {
	Hash   string `yaml:"hash"`
	Path   string `yaml:"path"`
	Reason string `yaml:"reason"`
}

// WalkAll walks data/**/meta.json (spec §4.3 startup integrity scan),
// returning every entry that parses and whose referenced side-files all
// exist, plus a list of everything that didn't.
func (s *Store) WalkAll() ([]*model.Entry, []BrokenEntry, error) {
	dataDir := DataDir(s.Root)
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return nil, nil, nil
	}

	var good []*model.Entry
	var broken []BrokenEntry

	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != metaFileName {
			return nil
		}
		if strings.Contains(path, string(filepath.Separator)+brokenSubdir+string(filepath.Separator)) {
			return nil
		}
		entryDir := filepath.Dir(path)
		hash := filepath.Base(entryDir)

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			broken = append(broken, BrokenEntry{Hash: hash, Path: entryDir, Reason: "unreadable meta.json: " + rerr.Error()})
			return nil
		}
		var doc metaDoc
		if jerr := json.Unmarshal(data, &doc); jerr != nil {
			broken = append(broken, BrokenEntry{Hash: hash, Path: entryDir, Reason: "invalid JSON: " + jerr.Error()})
			return nil
		}
		for id, fr := range doc.Plugins {
			if fr.Path == "" {
				continue
			}
			if _, serr := os.Stat(filepath.Join(entryDir, fr.Path)); serr != nil {
				broken = append(broken, BrokenEntry{Hash: hash, Path: entryDir, Reason: fmt.Sprintf("missing side-file for %s: %s", id, fr.Path)})
				return nil
			}
		}
		good = append(good, fromDoc(doc))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk store: %w", err)
	}
	return good, broken, nil
}

// QuickDigest hashes the sorted set of entry-directory names under data/
// without parsing any meta.json, so the startup path can decide whether a
// cached index/ snapshot (SPEC_FULL.md's "compressed index snapshot"
// supplement) is still trustworthy before paying for a full WalkAll.
func (s *Store) QuickDigest() (string, error) {
	dataDir := DataDir(s.Root)
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return snapshotDigestFromHashes(nil), nil
	}
	var hashes []string
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != metaFileName {
			return nil
		}
		if strings.Contains(path, string(filepath.Separator)+brokenSubdir+string(filepath.Separator)) {
			return nil
		}
		hashes = append(hashes, filepath.Base(filepath.Dir(path)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("quick digest walk: %w", err)
	}
	return snapshotDigestFromHashes(hashes), nil
}

// Scrub deletes orphan *.tmp files older than maxAge under data/ — the
// self-cleaning half-written-entry behavior from spec §4.3. renameio
// normally leaves no .tmp behind on success; this only matters after a
// crash mid-write.
func (s *Store) Scrub(maxAge time.Duration) error {
	dataDir := DataDir(s.Root)
	cutoff := time.Now().Add(-maxAge)
	return filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
		return nil
	})
}

// Quarantine moves a broken entry's directory into data/_broken/<hash>/ and
// appends a human-readable line to data/_broken/REPORT.yaml (supplemented
// feature, SPEC_FULL.md §3).
func (s *Store) Quarantine(b BrokenEntry) error {
	brokenDir := BrokenDir(s.Root)
	if err := os.MkdirAll(brokenDir, 0o755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}

	dest := filepath.Join(brokenDir, b.Hash)
	if _, err := os.Stat(b.Path); err == nil {
		if err := os.Rename(b.Path, dest); err != nil {
			return fmt.Errorf("quarantine %s: %w", b.Hash, err)
		}
	}

	return s.appendQuarantineReport(b)
}

func (s *Store) appendQuarantineReport(b BrokenEntry) error {
	reportPath := filepath.Join(BrokenDir(s.Root), "REPORT.yaml")

	var existing []BrokenEntry
	if data, err := os.ReadFile(reportPath); err == nil {
		_ = yaml.Unmarshal(data, &existing)
	}
	existing = append(existing, b)

	out, err := yaml.Marshal(existing)
	if err != nil {
		return fmt.Errorf("marshal quarantine report: %w", err)
	}
	return os.WriteFile(reportPath, out, 0o644)
}
