// Package kb implements the entry store: durable create, read, update
// and delete of knowledge records partitioned by category.
package kb

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Store persists knowledge records as self-describing JSON documents,
// one file per entry, keyed by a derived identifier within a category.
type Store struct {
	files    storage.Provider
	cats     *Categories
	foldCase bool
}

// New creates an entry store over the given provider and category set.
// foldCase lowercases derived identifiers.
func New(files storage.Provider, cats *Categories, foldCase bool) *Store {
	return &Store{files: files, cats: cats, foldCase: foldCase}
}

// Categories returns the store's category manager.
func (s *Store) Categories() *Categories {
	return s.cats
}

// Normalize applies the store's identifier derivation to a display name.
func (s *Store) Normalize(id string) string {
	return NormalizeID(id, s.foldCase)
}

func recordPath(dir, id string) string {
	return path.Join(dir, id+".json")
}

// Store persists data under category. When id is empty it is derived
// from the record's name or title field. The system _metadata sub-record
// (timestamp, category) is injected, replacing any caller-supplied one.
// An existing entry with the same identifier is overwritten whole.
// Returns the final identifier used.
func (s *Store) Store(data models.Record, category, id string) (string, error) {
	if category == "" {
		category = DefaultCategory
	}
	dir, err := s.cats.Resolve(category)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = data.DisplayName()
	}
	id = NormalizeID(id, s.foldCase)
	if id == "" {
		return "", fmt.Errorf("no identifier and no name or title field: %w", apperr.ErrInvalidEntry)
	}

	rec := make(models.Record, len(data)+1)
	maps.Copy(rec, data)
	rec[models.MetadataKey] = models.Metadata{Timestamp: time.Now(), Category: category}

	buf, err := rec.Encode()
	if err != nil {
		return "", err
	}
	if err := s.files.Write(recordPath(dir, id), buf); err != nil {
		return "", err
	}
	return id, nil
}

// StoreText persists a free-text entry with title, content, and the
// text kind tag. An empty title falls back to a timestamp-derived one.
func (s *Store) StoreText(text, title, category string) (string, error) {
	id := ""
	if title == "" {
		now := time.Now()
		title = "Text entry " + now.Format("2006-01-02 15:04:05")
		id = now.Format("text_20060102_150405")
	}
	rec := models.Record{
		"title":        title,
		"content":      text,
		models.KindKey: models.KindText,
	}
	return s.Store(rec, category, id)
}

// Retrieve loads the full record for id. When category is empty all
// categories are scanned alphabetically and the first match wins.
func (s *Store) Retrieve(id, category string) (models.Record, error) {
	norm := NormalizeID(id, s.foldCase)
	if norm == "" {
		return nil, fmt.Errorf("empty identifier: %w", apperr.ErrInvalidEntry)
	}
	if category != "" {
		dir, err := s.cats.Resolve(category)
		if err != nil {
			return nil, err
		}
		return s.read(dir, norm)
	}
	for _, cat := range s.cats.All() {
		rec, err := s.read(cat, norm)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%q: %w", id, apperr.ErrNotFound)
}

func (s *Store) read(dir, id string) (models.Record, error) {
	data, err := s.files.Read(recordPath(dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", dir, id, apperr.ErrNotFound)
		}
		return nil, err
	}
	rec, err := models.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", dir, id, err)
	}
	return rec, nil
}

// Delete removes the physical record for id and returns the category it
// was removed from. When category is empty the first alphabetical match
// is deleted. A missing target is an explicit apperr.ErrNotFound, never
// a silent no-op.
func (s *Store) Delete(id, category string) (string, error) {
	norm := NormalizeID(id, s.foldCase)
	if norm == "" {
		return "", fmt.Errorf("empty identifier: %w", apperr.ErrInvalidEntry)
	}
	if category != "" {
		dir, err := s.cats.Resolve(category)
		if err != nil {
			return "", err
		}
		return dir, s.remove(dir, norm)
	}
	for _, cat := range s.cats.All() {
		err := s.remove(cat, norm)
		if err == nil {
			return cat, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%q: %w", id, apperr.ErrNotFound)
}

func (s *Store) remove(dir, id string) error {
	if err := s.files.Delete(recordPath(dir, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s/%s: %w", dir, id, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// List returns entry summaries for one category, or for all categories
// in alphabetical category order with identifiers ascending within each.
// Corrupt records are skipped; the skip count is returned alongside the
// summaries for diagnostics. An empty category yields an empty slice.
func (s *Store) List(category string) ([]models.Summary, int, error) {
	var cats []string
	if category != "" {
		dir, err := s.cats.Resolve(category)
		if err != nil {
			return nil, 0, err
		}
		cats = []string{dir}
	} else {
		cats = s.cats.All()
	}

	var out []models.Summary
	skipped := 0
	for _, cat := range cats {
		infos, err := s.files.List(cat)
		if err != nil {
			return nil, 0, err
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
		for _, fi := range infos {
			id := strings.TrimSuffix(path.Base(fi.Path), ".json")
			data, err := s.files.Read(fi.Path)
			if err != nil {
				// Removed between list and read; treat like corrupt.
				skipped++
				continue
			}
			rec, err := models.Decode(data)
			if err != nil {
				skipped++
				continue
			}
			title := rec.DisplayName()
			if title == "" {
				title = id
			}
			out = append(out, models.Summary{
				ID:        id,
				Title:     title,
				Kind:      rec.Kind(),
				Category:  cat,
				UpdatedAt: fi.UpdatedAt,
			})
		}
	}
	return out, skipped, nil
}
