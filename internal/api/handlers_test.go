package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/Explosion-Scratch/clippy-sub000/internal/plugin"
	cache "github.com/Explosion-Scratch/clippy-sub000/internal/previewcache"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logging.NewWithOutput("test", io.Discard)
	st := store.New(t.TempDir(), 0, log)
	ix := index.New(log)
	return New(Deps{
		Store:      st,
		Index:      ix,
		Registry:   plugin.NewDefaultRegistry(),
		Cache:      cache.New(0, nil),
		Log:        log,
		Root:       st.Root,
		InstanceID: "test-instance",
	})
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleVersionReportsInstanceID(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/version")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["instanceId"] != "test-instance" {
		t.Fatalf("expected instanceId 'test-instance', got %v", body["instanceId"])
	}
	if body["version"] != Version {
		t.Fatalf("expected version %q, got %v", Version, body["version"])
	}
}

func TestHandleMtimeOnEmptyIndex(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/mtime")

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["id"] != nil {
		t.Fatalf("expected nil id on an empty index, got %v", body["id"])
	}
}

func TestHandleItemsOnEmptyIndexReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/items")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["total"].(float64) != 0 {
		t.Fatalf("expected total 0, got %v", body["total"])
	}
}

func TestHandleItemSummaryUnknownSelectorIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/item/deadbeef123456")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown selector, got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleItemSummaryResolvesByOffset(t *testing.T) {
	s := newTestServer(t)

	rec := &model.Entry{
		Hash:    "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789",
		Summary: "hello",
		Kind:    model.KindText,
		Plugins: map[string]model.FormatRecord{},
	}
	if err := s.store.WriteNew(rec, nil); err != nil {
		t.Fatalf("unexpected error writing entry: %v", err)
	}
	s.index.Upsert(index.FromEntry(rec, "hello"))

	resp := doRequest(s, http.MethodGet, "/item/0")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["summary"] != "hello" {
		t.Fatalf("expected summary 'hello', got %v", body["summary"])
	}
}

func TestHandleStatsOnEmptyIndex(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	totals, ok := body["totals"].(map[string]any)
	if !ok {
		t.Fatalf("expected a totals object, got %v", body)
	}
	if totals["entryCount"].(float64) != 0 {
		t.Fatalf("expected entryCount 0, got %v", totals["entryCount"])
	}
}

func TestHandleItemDeleteUnknownSelectorIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodDelete, "/item/deadbeef123456")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleting an unknown selector, got %d", rec.Code)
	}
}
