package kb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// ImportFile reads a JSON document from path and stores every record it
// contains under category. The document is either a single record
// object or an array of records. Returns the identifiers stored so far;
// a failure partway through leaves earlier records in place.
func (s *Store) ImportFile(path, category string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return s.ImportJSON(data, category)
}

// ImportJSON stores every record in a raw JSON document (object or
// array of objects) under category.
func (s *Store) ImportJSON(data []byte, category string) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	var recs []models.Record
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("parse import document: %v: %w", err, apperr.ErrInvalidEntry)
		}
	} else {
		var rec models.Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, fmt.Errorf("parse import document: %v: %w", err, apperr.ErrInvalidEntry)
		}
		recs = append(recs, rec)
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		id, err := s.Store(rec, category, "")
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
