package index

import (
	"testing"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

func buildTestIndex() *Index {
	ix := New(logging.New("test"))
	now := time.Now()
	ix.Load([]*Record{
		{Hash: "h1", LastSeen: now, Kind: model.KindText, CopyCount: 1, Summary: "hello world", SearchText: "hello world", Sources: []string{"clipboard"}, PluginIDs: []string{"text"}},
		{Hash: "h2", LastSeen: now.Add(-time.Hour), Kind: model.KindImage, CopyCount: 5, Summary: "a picture", SearchText: "a picture", Sources: []string{"save"}, PluginIDs: []string{"image"}},
		{Hash: "h3", LastSeen: now.Add(-2 * time.Hour), Kind: model.KindText, CopyCount: 2, Summary: "goodbye world", SearchText: "goodbye world", Sources: []string{"clipboard"}, PluginIDs: []string{"text", "html"}},
	})
	return ix
}

func TestRunDefaultsToDateDescending(t *testing.T) {
	ix := buildTestIndex()
	recs, total, err := ix.Run(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if recs[0].Hash != "h1" || recs[2].Hash != "h3" {
		t.Fatalf("expected newest-first ordering, got %v", hashesOf(recs))
	}
}

func TestRunSelectionByKind(t *testing.T) {
	ix := buildTestIndex()
	recs, total, err := ix.Run(Query{Kind: string(model.KindImage)})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || recs[0].Hash != "h2" {
		t.Fatalf("expected only h2 for kind=image, got %v", hashesOf(recs))
	}
}

func TestRunSelectionBySource(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{Source: "save"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Hash != "h2" {
		t.Fatalf("expected only h2 for source=save, got %v", hashesOf(recs))
	}
}

func TestRunSelectionByFormats(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{Formats: []string{"text", "html"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Hash != "h3" {
		t.Fatalf("expected only h3 to have both text and html, got %v", hashesOf(recs))
	}
}

func TestRunSelectionByIDs(t *testing.T) {
	ix := buildTestIndex()
	recs, total, err := ix.Run(Query{IDs: []string{"h1", "h3"}})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("expected total 2 for ids filter, got %d", total)
	}
	for _, r := range recs {
		if r.Hash != "h1" && r.Hash != "h3" {
			t.Fatalf("unexpected hash in ids-filtered result: %s", r.Hash)
		}
	}
}

func TestRunTextSearchCaseInsensitive(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{QueryText: "WORLD"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 matches for 'WORLD', got %d: %v", len(recs), hashesOf(recs))
	}
}

func TestRunTextSearchRegex(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{QueryText: "^goodbye", Regex: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Hash != "h3" {
		t.Fatalf("expected only h3 for regex ^goodbye, got %v", hashesOf(recs))
	}
}

func TestRunInvalidRegexErrors(t *testing.T) {
	ix := buildTestIndex()
	if _, _, err := ix.Run(Query{QueryText: "(", Regex: true}); err == nil {
		t.Fatal("expected an error for an invalid regex")
	}
}

func TestRunDateWindow(t *testing.T) {
	ix := buildTestIndex()
	now := time.Now()
	recs, _, err := ix.Run(Query{From: now.Add(-90 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records within the last 90 minutes, got %d: %v", len(recs), hashesOf(recs))
	}
}

func TestRunSortByCopies(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{Sort: SortCopies})
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Hash != "h2" {
		t.Fatalf("expected h2 (copyCount=5) first when sorting by copies desc, got %v", hashesOf(recs))
	}
}

func TestRunSortAscending(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{Sort: SortCopies, Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Hash != "h1" {
		t.Fatalf("expected h1 (copyCount=1) first when sorting by copies asc, got %v", hashesOf(recs))
	}
}

func TestRunSortByRelevance(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{QueryText: "world", Sort: SortRelevance})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 matches for 'world', got %d", len(recs))
	}
}

func TestRunRelevanceFallsBackToDateWithoutQueryText(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{Sort: SortRelevance})
	if err != nil {
		t.Fatal(err)
	}
	// No query text: relevance sort has nothing to rank by, so it behaves
	// like date-descending.
	if recs[0].Hash != "h1" {
		t.Fatalf("expected relevance-without-querytext to fall back to date order, got %v", hashesOf(recs))
	}
}

func TestRunPagination(t *testing.T) {
	ix := buildTestIndex()
	recs, total, err := ix.Run(Query{Offset: 1, Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("expected total to reflect the full match set (3), got %d", total)
	}
	if len(recs) != 1 || recs[0].Hash != "h2" {
		t.Fatalf("expected page [offset=1,count=1] to be [h2], got %v", hashesOf(recs))
	}
}

func TestRunPaginationOffsetBeyondEnd(t *testing.T) {
	ix := buildTestIndex()
	recs, _, err := ix.Run(Query{Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records past the end, got %d", len(recs))
	}
}

func hashesOf(recs []*Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Hash
	}
	return out
}
