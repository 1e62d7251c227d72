// Package hash implements the content fingerprint (spec §4.1) and a cheap
// pre-filter hash used by the watcher to skip re-running the full plugin
// pipeline when the clipboard content hasn't actually changed.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/minio/highwayhash"
)

// Pair is one (plugin_id, payload_bytes) input to the fingerprint.
type Pair struct {
	PluginID string
	Payload  []byte
}

// highwayKey is a fixed, non-secret 32-byte key. highwayhash is used here
// purely as a fast rolling checksum to short-circuit re-extraction on an
// unchanged clipboard tick, never as the content identity (that's always
// SHA-256, below) so the key does not need to be secret or persisted.
var highwayKey = make([]byte, 32)

// Fingerprint computes the canonical content hash of a capture: pairs are
// sorted by plugin id, then each pair's id, a null separator, its payload,
// and a record separator are fed into one SHA-256 accumulator. The result
// ignores metadata (timestamps, sources, counts) so re-observing identical
// content always yields the same hash.
func Fingerprint(pairs []Pair) string {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PluginID < sorted[j].PluginID })

	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p.PluginID))
		h.Write([]byte{0})
		h.Write(p.Payload)
		h.Write([]byte{0x1e}) // ASCII record separator
	}
	return hex.EncodeToString(h.Sum(nil))
}

// QuickSignature returns a cheap, non-cryptographic digest of the raw
// captured bytes across all formats, concatenated in a stable order. The
// watcher compares this against the previous tick's signature before
// running probe/extract/Fingerprint again, so an unchanged clipboard
// (by far the common case between ticks) costs one hash instead of a full
// plugin pass.
func QuickSignature(pairs []Pair) uint64 {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PluginID < sorted[j].PluginID })

	h, err := highwayhash.New64(highwayKey)
	if err != nil {
		// highwayKey is always exactly 32 bytes; this cannot fail.
		panic(err)
	}
	for _, p := range sorted {
		h.Write([]byte(p.PluginID))
		h.Write(p.Payload)
	}
	sum := h.Sum(nil)
	var v uint64
	for _, b := range sum[:8] {
		v = v<<8 | uint64(b)
	}
	return v
}
