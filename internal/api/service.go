package api

import (
	"fmt"
	"time"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/kb"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/storage"
)

// Service coordinates the entry store, the summary index, and the
// search engine for the API layer.
type Service struct {
	kb     *kb.Store
	files  storage.Provider
	db     index.EntryIndex
	engine *search.Engine
}

// NewService creates a new API service.
func NewService(store *kb.Store, files storage.Provider, db index.EntryIndex, engine *search.Engine) *Service {
	return &Service{kb: store, files: files, db: db, engine: engine}
}

// StoreRecord persists a structured record and refreshes its index row.
// Returns the final identifier and the effective category.
func (s *Service) StoreRecord(rec models.Record, category, id string) (string, string, error) {
	if category == "" {
		category = kb.DefaultCategory
	}
	finalID, err := s.kb.Store(rec, category, id)
	if err != nil {
		return "", "", err
	}
	if err := s.indexStored(category, finalID); err != nil {
		return "", "", err
	}
	return finalID, category, nil
}

// StoreText persists a free-text entry and refreshes its index row.
func (s *Service) StoreText(text, title, category string) (string, string, error) {
	if category == "" {
		category = kb.DefaultCategory
	}
	id, err := s.kb.StoreText(text, title, category)
	if err != nil {
		return "", "", err
	}
	if err := s.indexStored(category, id); err != nil {
		return "", "", err
	}
	return id, category, nil
}

// Import stores every record in a raw JSON document (object or array)
// and refreshes the index rows.
func (s *Service) Import(data []byte, category string) ([]string, error) {
	if category == "" {
		category = kb.DefaultCategory
	}
	ids, err := s.kb.ImportJSON(data, category)
	for _, id := range ids {
		if idxErr := s.indexStored(category, id); idxErr != nil && err == nil {
			err = idxErr
		}
	}
	return ids, err
}

// Get loads the full record for id; empty category scans all.
func (s *Service) Get(id, category string) (models.Record, error) {
	return s.kb.Retrieve(id, category)
}

// Delete removes an entry from storage and index, returning the
// category it was removed from.
func (s *Service) Delete(id, category string) (string, error) {
	cat, err := s.kb.Delete(id, category)
	if err != nil {
		return "", err
	}
	if err := s.db.DeleteEntry(cat, s.kb.Normalize(id)); err != nil {
		return "", err
	}
	return cat, nil
}

// List returns a page of entry summaries from the index.
func (s *Service) List(limit, offset int, category string) ([]index.EntryRow, int, error) {
	return s.db.ListEntries(limit, offset, category)
}

// Search delegates to the scan-based search engine.
func (s *Service) Search(query, category string) ([]search.Result, int, error) {
	return s.engine.Search(query, category)
}

// indexStored re-reads a freshly written record and upserts its summary
// row, so API reads see the change without waiting for the watcher.
func (s *Service) indexStored(category, id string) error {
	path := category + "/" + id + ".json"
	data, err := s.files.Read(path)
	if err != nil {
		return fmt.Errorf("index stored entry: %w", err)
	}
	rec, err := models.Decode(data)
	if err != nil {
		return err
	}
	title := rec.DisplayName()
	if title == "" {
		title = id
	}
	return s.db.UpsertEntry(index.EntryRow{
		Category:  category,
		ID:        id,
		Title:     title,
		Kind:      rec.Kind(),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	})
}
