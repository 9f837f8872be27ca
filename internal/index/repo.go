package index

import (
	"fmt"
	"time"
)

// EntryRow represents a row in the entries table.
type EntryRow struct {
	Category  string
	ID        string
	Title     string
	Kind      string
	Checksum  string
	UpdatedAt time.Time
}

// Key returns the category/id pair as a single map key.
func (r EntryRow) Key() string {
	return r.Category + "/" + r.ID
}

// UpsertEntry inserts or replaces an entry summary.
func (db *DB) UpsertEntry(r EntryRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO entries (category, id, title, kind, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, id) DO UPDATE SET
			title      = excluded.title,
			kind       = excluded.kind,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.Category, r.ID, r.Title, r.Kind, r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}
	return nil
}

// DeleteEntry removes an entry summary.
func (db *DB) DeleteEntry(category, id string) error {
	if _, err := db.conn.Exec(`DELETE FROM entries WHERE category = ? AND id = ?`, category, id); err != nil {
		return fmt.Errorf("index: delete entry: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for an entry, or empty string
// if not indexed.
func (db *DB) GetChecksum(category, id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entries WHERE category = ? AND id = ?`, category, id).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// ListEntries returns a page of entry summaries in deterministic order
// (category, then identifier ascending) plus the total row count.
// category filters to one partition when non-empty. limit <= 0 selects
// a default page size.
func (db *DB) ListEntries(limit, offset int, category string) ([]EntryRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if category != "" {
		where = "WHERE category = ?"
		args = append(args, category)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT category, id, title, kind, checksum, updated_at
		FROM entries %s
		ORDER BY category, id
		LIMIT ? OFFSET ?
	`, where)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list entries: %w", err)
	}
	defer rows.Close()

	var out []EntryRow
	for rows.Next() {
		var r EntryRow
		if err := rows.Scan(&r.Category, &r.ID, &r.Title, &r.Kind, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum for every indexed entry, keyed by
// category/id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT category, id, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var cat, id, cs string
		if err := rows.Scan(&cat, &id, &cs); err != nil {
			return nil, err
		}
		out[cat+"/"+id] = cs
	}
	return out, rows.Err()
}
