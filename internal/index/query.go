package index

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tiendc/go-deepcopy"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
)

// SortMode names the four sort modes of spec §4.4 step 4.
type SortMode string

const (
	SortDate      SortMode = "date"
	SortCopies    SortMode = "copies"
	SortType      SortMode = "type"
	SortRelevance SortMode = "relevance"
)

// Query bundles the operators applied, in order, to a snapshot of the
// record sequence (spec §4.4): selection, text search, date window, sort,
// pagination.
type Query struct {
	// Selection (step 1): exactly one of these may be set; zero means "all".
	Kind    string
	Source  string
	Formats []string // entry must have every one of these plugin ids

	// IDs, when non-empty, restricts results to these hashes regardless of
	// the other selection fields (GET /items?ids=...).
	IDs []string

	// Text search (step 2).
	QueryText string
	Regex     bool

	// Date window (step 3), zero time means unbounded.
	From time.Time
	To   time.Time

	// Sort (step 4).
	Sort  SortMode
	Order string // "asc" | "desc", default "desc"

	// Pagination (step 5).
	Offset int
	Count  int // <=0 means unlimited
}

type scored struct {
	rec   *Record
	score float64
}

// Run executes the five-step pipeline against a snapshot of the current
// record sequence and returns the page of matching records plus the total
// match count before pagination (for clients building "N of M" UIs).
func (ix *Index) Run(q Query) ([]*Record, int, error) {
	snapshot, err := ix.snapshot()
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindIO, "snapshot index", err)
	}

	filtered, err := applySelection(snapshot, q)
	if err != nil {
		return nil, 0, err
	}
	if len(q.IDs) > 0 {
		wanted := make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			wanted[id] = true
		}
		filtered = lo.Filter(filtered, func(r *Record, _ int) bool { return wanted[r.Hash] })
	}

	var re *regexp.Regexp
	queryText := strings.TrimSpace(q.QueryText)
	if q.Regex && queryText != "" {
		re, err = regexp.Compile(queryText)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindValidation, "compile search regex", err)
		}
	}

	sortMode := q.Sort
	if sortMode == "" {
		sortMode = SortDate
	}
	if queryText == "" && sortMode == SortRelevance {
		sortMode = SortDate
	}

	matched := applyTextFilter(filtered, queryText, re)
	matched = applyDateWindow(matched, q.From, q.To)

	total := len(matched)

	ranked := rankAndSort(matched, queryText, sortMode, q.Order)

	page := paginate(ranked, q.Offset, q.Count)
	return page, total, nil
}

// snapshot deep-copies the current record sequence under the read lock so
// subsequent filtering never observes a concurrent mutation (spec §4.4
// "applied to a copy of the record sequence, lazily").
func (ix *Index) snapshot() ([]*Record, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*Record
	if err := deepcopy.Copy(&out, &ix.records); err != nil {
		return nil, err
	}
	return out, nil
}

func applySelection(recs []*Record, q Query) ([]*Record, error) {
	switch {
	case q.Kind != "":
		return lo.Filter(recs, func(r *Record, _ int) bool {
			return string(r.Kind) == q.Kind
		}), nil
	case q.Source != "":
		return lo.Filter(recs, func(r *Record, _ int) bool {
			return r.hasSource(q.Source)
		}), nil
	case len(q.Formats) > 0:
		return lo.Filter(recs, func(r *Record, _ int) bool {
			for _, f := range q.Formats {
				if !r.hasPlugin(f) {
					return false
				}
			}
			return true
		}), nil
	default:
		return recs, nil
	}
}

func applyTextFilter(recs []*Record, queryText string, re *regexp.Regexp) []*Record {
	if queryText == "" {
		return recs
	}
	if re != nil {
		return lo.Filter(recs, func(r *Record, _ int) bool {
			return re.MatchString(r.Summary) || re.MatchString(r.SearchText)
		})
	}
	needle := strings.ToLower(queryText)
	return lo.Filter(recs, func(r *Record, _ int) bool {
		return strings.Contains(strings.ToLower(r.Summary), needle) ||
			strings.Contains(strings.ToLower(r.SearchText), needle)
	})
}

func applyDateWindow(recs []*Record, from, to time.Time) []*Record {
	if from.IsZero() && to.IsZero() {
		return recs
	}
	return lo.Filter(recs, func(r *Record, _ int) bool {
		if !from.IsZero() && r.LastSeen.Before(from) {
			return false
		}
		if !to.IsZero() && r.LastSeen.After(to) {
			return false
		}
		return true
	})
}

// relevanceScore implements spec §4.4 step 4's relevance formula: token
// occurrence count in search_text times 10, plus 1 if the query appears in
// summary, minus age in hours divided by 24.
func relevanceScore(r *Record, queryText string) float64 {
	tokens := strings.Fields(strings.ToLower(queryText))
	haystack := strings.ToLower(r.SearchText)
	var occurrences int
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		occurrences += strings.Count(haystack, tok)
	}
	score := float64(occurrences) * 10
	if strings.Contains(strings.ToLower(r.Summary), strings.ToLower(queryText)) {
		score += 1
	}
	ageHours := time.Since(r.LastSeen).Hours()
	score -= ageHours / 24
	return score
}

func rankAndSort(recs []*Record, queryText string, mode SortMode, order string) []*Record {
	desc := order != "asc"

	if mode == SortRelevance {
		items := lo.Map(recs, func(r *Record, _ int) scored {
			return scored{rec: r, score: relevanceScore(r, queryText)}
		})
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].score != items[j].score {
				if desc {
					return items[i].score > items[j].score
				}
				return items[i].score < items[j].score
			}
			return items[i].rec.LastSeen.After(items[j].rec.LastSeen)
		})
		return lo.Map(items, func(s scored, _ int) *Record { return s.rec })
	}

	out := append([]*Record(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch mode {
		case SortCopies:
			if a.CopyCount != b.CopyCount {
				if desc {
					return a.CopyCount > b.CopyCount
				}
				return a.CopyCount < b.CopyCount
			}
			return a.LastSeen.After(b.LastSeen)
		case SortType:
			if a.Kind != b.Kind {
				if desc {
					return a.Kind > b.Kind
				}
				return a.Kind < b.Kind
			}
			return a.LastSeen.After(b.LastSeen)
		default: // SortDate
			if desc {
				return a.LastSeen.After(b.LastSeen)
			}
			return a.LastSeen.Before(b.LastSeen)
		}
	})
	return out
}

func paginate(recs []*Record, offset, count int) []*Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return []*Record{}
	}
	end := len(recs)
	if count > 0 && offset+count < end {
		end = offset + count
	}
	return recs[offset:end]
}
