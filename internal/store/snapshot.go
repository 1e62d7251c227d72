package store

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/google/renameio"
	"github.com/ulikunitz/xz"
)

const (
	snapshotFile = "snapshot.ndjson.xz"
	digestFile   = "digest.txt"
)

// snapshotDigest is a cheap fingerprint of the store's current hash set,
// used to decide whether a cached index/ snapshot is still trustworthy
// without re-reading every meta.json (SPEC_FULL.md's "compressed index
// snapshot" supplement).
func snapshotDigest(entries []*model.Entry) string {
	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.Hash
	}
	return snapshotDigestFromHashes(hashes)
}

// snapshotDigestFromHashes is the shared digest primitive: order-independent
// over the hash set, so it matches whether hashes arrived from parsed
// entries or a bare directory listing (QuickDigest).
func snapshotDigestFromHashes(hashes []string) string {
	sorted := make([]string, len(hashes))
	copy(sorted, hashes)
	sort.Strings(sorted)
	h := sha256.New()
	for _, hh := range sorted {
		h.Write([]byte(hh))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WriteSnapshot persists an xz-compressed NDJSON snapshot of the current
// index state plus its digest, written on clean shutdown and periodically.
// Never authoritative on its own: ReadSnapshot's caller must validate the
// digest still matches the live store before trusting it.
func (s *Store) WriteSnapshot(entries []*model.Entry) error {
	if err := os.MkdirAll(IndexDir(s.Root), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("init xz writer: %w", err)
	}
	enc := json.NewEncoder(xw)
	for _, e := range entries {
		if err := enc.Encode(toDoc(e)); err != nil {
			_ = xw.Close()
			return fmt.Errorf("encode snapshot entry: %w", err)
		}
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("flush xz writer: %w", err)
	}

	if err := renameio.WriteFile(filepath.Join(IndexDir(s.Root), snapshotFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	digest := []byte(snapshotDigest(entries))
	if err := renameio.WriteFile(filepath.Join(IndexDir(s.Root), digestFile), digest, 0o644); err != nil {
		return fmt.Errorf("write snapshot digest: %w", err)
	}
	return nil
}

// ReadSnapshot loads the cached snapshot if its digest matches
// expectedDigest (computed by the caller over the current store's hash
// set, with QuickDigest or ExpectedDigest). Returns (nil, false, nil) on any mismatch or absence — the
// caller always falls back to a full store walk in that case.
func (s *Store) ReadSnapshot(expectedDigest string) ([]*model.Entry, bool, error) {
	digestPath := filepath.Join(IndexDir(s.Root), digestFile)
	stored, err := os.ReadFile(digestPath)
	if err != nil {
		return nil, false, nil
	}
	if string(stored) != expectedDigest {
		return nil, false, nil
	}

	f, err := os.Open(filepath.Join(IndexDir(s.Root), snapshotFile))
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()

	xr, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, false, fmt.Errorf("init xz reader: %w", err)
	}

	var out []*model.Entry
	dec := json.NewDecoder(xr)
	for dec.More() {
		var doc metaDoc
		if err := dec.Decode(&doc); err != nil {
			return nil, false, fmt.Errorf("decode snapshot entry: %w", err)
		}
		out = append(out, fromDoc(doc))
	}
	return out, true, nil
}

// ExpectedDigest computes the digest the caller should compare
// ReadSnapshot's cache against, from a freshly walked entry list.
func ExpectedDigest(entries []*model.Entry) string { return snapshotDigest(entries) }
