package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

func sampleEntry() *model.Entry {
	return &model.Entry{
		Hash:      "deadbeef",
		FirstSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LastSeen:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		CopyCount: 3,
		Kind:      model.KindText,
		ByteSize:  12,
		Summary:   "hello world",
		Sources:   []string{"term"},
		Plugins: map[string]model.FormatRecord{
			"text": {InlineData: []byte("hello world"), ByteSize: 11},
		},
	}
}

func TestFromEntryMapsInternalToExternalNames(t *testing.T) {
	item := FromEntry(sampleEntry())

	if item.ID != "deadbeef" {
		t.Fatalf("expected ID to come from Hash, got %q", item.ID)
	}
	if !item.FirstDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected FirstDate: %v", item.FirstDate)
	}
	if !item.Date.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected Date: %v", item.Date)
	}
	if item.CopyCount != 3 {
		t.Fatalf("unexpected CopyCount: %d", item.CopyCount)
	}
	f, ok := item.Formats["text"]
	if !ok {
		t.Fatal("expected a 'text' format entry")
	}
	if string(f.InlineData) != "hello world" {
		t.Fatalf("unexpected inline data: %q", f.InlineData)
	}
}

func TestFromRecordOmitsFormatBodies(t *testing.T) {
	rec := &index.Record{
		Hash:      "cafef00d",
		FirstSeen: time.Now(),
		LastSeen:  time.Now(),
		CopyCount: 1,
		Kind:      model.KindText,
		ByteSize:  5,
		Summary:   "hi",
		Sources:   []string{"gui"},
		PluginIDs: []string{"text"},
	}

	item := FromRecord(rec)

	if item.ID != "cafef00d" {
		t.Fatalf("expected ID from Hash, got %q", item.ID)
	}
	f, ok := item.Formats["text"]
	if !ok {
		t.Fatal("expected a 'text' key present in Formats")
	}
	if len(f.InlineData) != 0 || f.Path != "" {
		t.Fatalf("expected an empty format body for a list-view record, got %+v", f)
	}
}

func TestParseItemAcceptsExternalFieldNames(t *testing.T) {
	body := []byte(`{
		"id": "abc123",
		"firstDate": "2026-01-01T00:00:00Z",
		"date": "2026-01-02T00:00:00Z",
		"copyCount": 2,
		"kind": "text",
		"byteSize": 5,
		"summary": "hi",
		"sources": ["gui"],
		"formats": {
			"text": {"data": "aGVsbG8=", "byteSize": 5}
		}
	}`)

	e, err := ParseItem(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Hash != "abc123" {
		t.Fatalf("expected Hash from 'id', got %q", e.Hash)
	}
	if !e.FirstSeen.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected FirstSeen: %v", e.FirstSeen)
	}
	if !e.LastSeen.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected LastSeen: %v", e.LastSeen)
	}
	fr, ok := e.Plugins["text"]
	if !ok {
		t.Fatal("expected a 'text' plugin entry")
	}
	if string(fr.InlineData) != "hello" {
		t.Fatalf("expected InlineData from 'data' field, got %q", fr.InlineData)
	}
}

func TestParseItemAcceptsInternalFieldNames(t *testing.T) {
	body := []byte(`{
		"hash": "abc123",
		"firstSeen": "2026-01-01T00:00:00Z",
		"timestamp": "2026-01-02T00:00:00Z",
		"copyCount": 2,
		"kind": "text",
		"plugins": {
			"text": {"inlineData": "aGVsbG8=", "byteSize": 5}
		}
	}`)

	e, err := ParseItem(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Hash != "abc123" {
		t.Fatalf("expected Hash from 'hash', got %q", e.Hash)
	}
	if !e.LastSeen.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected LastSeen from 'timestamp', got %v", e.LastSeen)
	}
	fr, ok := e.Plugins["text"]
	if !ok {
		t.Fatal("expected a 'text' plugin entry")
	}
	if string(fr.InlineData) != "hello" {
		t.Fatalf("expected InlineData from 'inlineData' field, got %q", fr.InlineData)
	}
}

func TestParseItemPrefersHashOverIDWhenBothPresent(t *testing.T) {
	body := []byte(`{"hash": "from-hash", "id": "from-id"}`)
	e, err := ParseItem(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Hash != "from-hash" {
		t.Fatalf("expected 'hash' to take precedence, got %q", e.Hash)
	}
}

func TestParseItemInvalidJSONErrors(t *testing.T) {
	if _, err := ParseItem([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestParseItemWithoutFormatsProducesEmptyPluginsMap(t *testing.T) {
	e, err := ParseItem([]byte(`{"id": "xyz"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Plugins == nil {
		t.Fatal("expected a non-nil, empty Plugins map")
	}
	if len(e.Plugins) != 0 {
		t.Fatalf("expected no plugin entries, got %d", len(e.Plugins))
	}
}

func TestItemMarshalsExternalFieldNames(t *testing.T) {
	item := FromEntry(sampleEntry())
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "firstDate", "date", "copyCount", "kind", "formats"} {
		if _, ok := generic[key]; !ok {
			t.Fatalf("expected emitted JSON to contain %q, got %v", key, generic)
		}
	}
	for _, key := range []string{"hash", "firstSeen", "plugins"} {
		if _, ok := generic[key]; ok {
			t.Fatalf("expected emitted JSON to never contain internal key %q", key)
		}
	}
}
