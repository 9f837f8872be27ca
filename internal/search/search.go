// Package search implements keyword retrieval across the entry store.
package search

import (
	"errors"
	"sort"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/kb"
	"github.com/starford/othala/internal/models"
)

// Engine scans entries and ranks them by keyword match. It depends on
// the entry store for candidate enumeration; every search is a full
// scan of the requested categories.
type Engine struct {
	store *kb.Store
}

// New creates a search engine over the given entry store.
func New(store *kb.Store) *Engine {
	return &Engine{store: store}
}

// Result is one search hit, annotated for display.
type Result struct {
	ID       string        `json:"id"`
	Category string        `json:"category"`
	Title    string        `json:"title"`
	Kind     string        `json:"kind,omitempty"`
	Score    int           `json:"score"`
	Record   models.Record `json:"record"`
}

// Search tokenizes query into lowercase keywords and returns entries
// where any keyword is contained in any string-valued field. Results are
// ordered by number of distinct keywords matched, ties broken by the
// store's deterministic listing order; the candidate pool is merged
// across categories before ranking. An empty or whitespace-only query
// matches nothing. The second return value counts records skipped as
// corrupt.
func (e *Engine) Search(query, category string) ([]Result, int, error) {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, 0, nil
	}

	sums, skipped, err := e.store.List(category)
	if err != nil {
		return nil, 0, err
	}

	var out []Result
	for _, sum := range sums {
		rec, err := e.store.Retrieve(sum.ID, sum.Category)
		if err != nil {
			if errors.Is(err, apperr.ErrCorruptRecord) || errors.Is(err, apperr.ErrNotFound) {
				skipped++
				continue
			}
			return nil, 0, err
		}
		score := matchCount(fieldStrings(rec), keywords)
		if score == 0 {
			continue
		}
		out = append(out, Result{
			ID:       sum.ID,
			Category: sum.Category,
			Title:    sum.Title,
			Kind:     sum.Kind,
			Score:    score,
			Record:   rec,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, skipped, nil
}

// matchCount returns the number of distinct keywords contained in at
// least one field.
func matchCount(fields, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		for _, f := range fields {
			if strings.Contains(f, kw) {
				n++
				break
			}
		}
	}
	return n
}

// fieldStrings collects every string value in the record, lowercased,
// descending into arrays and nested maps. The system _metadata
// sub-record is not searchable.
func fieldStrings(rec models.Record) []string {
	var out []string
	for key, v := range rec {
		if key == models.MetadataKey {
			continue
		}
		collectStrings(v, &out)
	}
	return out
}

func collectStrings(v any, out *[]string) {
	switch x := v.(type) {
	case string:
		*out = append(*out, strings.ToLower(x))
	case []any:
		for _, item := range x {
			collectStrings(item, out)
		}
	case map[string]any:
		for _, item := range x {
			collectStrings(item, out)
		}
	}
}
