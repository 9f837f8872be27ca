// Package testutil provides shared test helpers for setting up stores and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/kb"
	"github.com/starford/othala/internal/storage"
)

// TestDB creates a temporary SQLite index database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary knowledge store with the default
// category set and returns it with its base directory and provider.
func TestStore(t *testing.T) (*kb.Store, storage.Provider, string) {
	t.Helper()
	baseDir := t.TempDir()
	cats := kb.NewCategories(baseDir, nil, false)
	if err := cats.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	files, err := storage.NewFS(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	return kb.New(files, cats, false), files, baseDir
}
