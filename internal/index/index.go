package index

// EntryIndex is the summary-index surface consumed by the API layer.
type EntryIndex interface {
	UpsertEntry(row EntryRow) error
	DeleteEntry(category, id string) error
	GetChecksum(category, id string) (string, error)
	ListEntries(limit, offset int, category string) ([]EntryRow, int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
