// Package models defines the domain types for Othala.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/othala/internal/apperr"
)

// Reserved keys within a record.
const (
	// MetadataKey is the system-managed sub-record injected on every write.
	MetadataKey = "_metadata"
	// KindKey tags a record as text, concept, person, system, reference
	// or any caller-defined kind.
	KindKey = "type"
)

// KindText is the kind tag used for free-text entries.
const KindText = "text"

// Record is one knowledge entry as stored on disk: an open mapping from
// field name to scalar, array, or nested value, plus the injected
// _metadata sub-record. Fields beyond the reserved keys pass through
// opaquely.
type Record map[string]any

// Metadata is the system-managed sub-record holding the last-write
// instant and a redundant copy of the owning category for display.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
}

// Summary is a lightweight representation returned by list operations.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileInfo describes one on-disk record file, as reported by storage
// list operations.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decode parses a raw record document. Unparseable input is reported as
// apperr.ErrCorruptRecord so scans can recover by skipping.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorruptRecord, err)
	}
	return r, nil
}

// Encode renders the record as an indented JSON document, the on-disk
// wire format.
func (r Record) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return append(data, '\n'), nil
}

// Kind returns the record's kind tag, or empty string when untyped.
func (r Record) Kind() string {
	if k, ok := r[KindKey].(string); ok {
		return k
	}
	return ""
}

// DisplayName returns the record's name field, falling back to title.
func (r Record) DisplayName() string {
	if n, ok := r["name"].(string); ok && n != "" {
		return n
	}
	if t, ok := r["title"].(string); ok && t != "" {
		return t
	}
	return ""
}

// Metadata returns the decoded _metadata sub-record, if present.
// A decoded record carries it as a map; a freshly built one may hold
// the struct directly.
func (r Record) Metadata() (Metadata, bool) {
	switch v := r[MetadataKey].(type) {
	case Metadata:
		return v, true
	case map[string]any:
		var m Metadata
		if cat, ok := v["category"].(string); ok {
			m.Category = cat
		}
		if raw, ok := v["timestamp"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				m.Timestamp = ts
			}
		}
		return m, true
	}
	return Metadata{}, false
}
