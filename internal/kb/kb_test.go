package kb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

func tempKB(t *testing.T) (*Store, string) {
	t.Helper()
	return tempKBOpts(t, false, false)
}

func tempKBOpts(t *testing.T, dynamic, foldCase bool) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	cats := NewCategories(dir, nil, dynamic)
	if err := cats.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(files, cats, foldCase), dir
}

func TestStoreAndRetrieve(t *testing.T) {
	s, _ := tempKB(t)
	start := time.Now()

	id, err := s.Store(models.Record{
		"name":       "Einstein",
		"type":       "person",
		"birth_year": 1879,
	}, "science", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id != "Einstein" {
		t.Errorf("id = %q, want Einstein", id)
	}

	rec, err := s.Retrieve("Einstein", "science")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if rec["name"] != "Einstein" || rec["type"] != "person" {
		t.Errorf("fields not preserved: %v", rec)
	}
	// JSON numbers decode as float64.
	if rec["birth_year"] != float64(1879) {
		t.Errorf("birth_year = %v", rec["birth_year"])
	}

	meta, ok := rec.Metadata()
	if !ok {
		t.Fatal("missing _metadata")
	}
	if meta.Category != "science" {
		t.Errorf("metadata category = %q", meta.Category)
	}
	if meta.Timestamp.Before(start.Truncate(time.Second)) {
		t.Errorf("timestamp %v earlier than call start %v", meta.Timestamp, start)
	}
}

func TestStoreWritesRecordFile(t *testing.T) {
	s, dir := tempKB(t)
	if _, err := s.Store(models.Record{"name": "Periodic Table"}, "science", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "science", "Periodic_Table.json")); err != nil {
		t.Errorf("record file missing: %v", err)
	}
}

func TestStoreOverwrites(t *testing.T) {
	s, _ := tempKB(t)
	if _, err := s.Store(models.Record{"name": "AI", "definition": "old"}, "technology", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := s.Store(models.Record{"name": "AI", "scope": "new"}, "technology", ""); err != nil {
		t.Fatalf("Store second: %v", err)
	}
	rec, err := s.Retrieve("AI", "technology")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if _, stale := rec["definition"]; stale {
		t.Error("overwrite merged old fields instead of replacing the record")
	}
	if rec["scope"] != "new" {
		t.Errorf("scope = %v", rec["scope"])
	}
}

func TestStoreNoIdentifier(t *testing.T) {
	s, _ := tempKB(t)
	_, err := s.Store(models.Record{"description": "nothing to derive from"}, "general", "")
	if !errors.Is(err, apperr.ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestStoreUnknownCategory(t *testing.T) {
	s, _ := tempKB(t)
	_, err := s.Store(models.Record{"name": "x"}, "nonsense", "")
	if !errors.Is(err, apperr.ErrUnknownCategory) {
		t.Errorf("err = %v, want ErrUnknownCategory", err)
	}
}

func TestStoreDynamicCategory(t *testing.T) {
	s, dir := tempKBOpts(t, true, false)
	if _, err := s.Store(models.Record{"name": "x"}, "projects", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "projects", "x.json")); err != nil {
		t.Errorf("dynamic partition missing: %v", err)
	}
	// The new partition is now recognized for reads.
	if _, err := s.Retrieve("x", "projects"); err != nil {
		t.Errorf("Retrieve from dynamic category: %v", err)
	}
}

func TestStoreDefaultsToGeneral(t *testing.T) {
	s, _ := tempKB(t)
	if _, err := s.Store(models.Record{"name": "misc"}, "", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	rec, err := s.Retrieve("misc", DefaultCategory)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	meta, _ := rec.Metadata()
	if meta.Category != DefaultCategory {
		t.Errorf("category = %q", meta.Category)
	}
}

func TestStoreText(t *testing.T) {
	s, _ := tempKB(t)
	id, err := s.StoreText("Python is a programming language.", "Python Info", "technology")
	if err != nil {
		t.Fatalf("StoreText: %v", err)
	}
	if id != "Python_Info" {
		t.Errorf("id = %q", id)
	}
	rec, err := s.Retrieve("Python Info", "technology")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if rec["title"] != "Python Info" {
		t.Errorf("title = %v", rec["title"])
	}
	if rec["content"] != "Python is a programming language." {
		t.Errorf("content = %v", rec["content"])
	}
	if rec.Kind() != models.KindText {
		t.Errorf("kind = %q", rec.Kind())
	}
}

func TestStoreTextUntitled(t *testing.T) {
	s, _ := tempKB(t)
	id, err := s.StoreText("orphan text", "", "")
	if err != nil {
		t.Fatalf("StoreText: %v", err)
	}
	if id == "" {
		t.Error("expected a derived identifier")
	}
	rec, err := s.Retrieve(id, DefaultCategory)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if rec["title"] == "" {
		t.Error("expected a fallback title")
	}
}

func TestRetrieveAnyCategory(t *testing.T) {
	s, _ := tempKB(t)
	// Same identifier in two categories: alphabetical order picks
	// "personal" before "science".
	_, _ = s.Store(models.Record{"name": "twin", "origin": "science"}, "science", "")
	_, _ = s.Store(models.Record{"name": "twin", "origin": "personal"}, "personal", "")

	rec, err := s.Retrieve("twin", "")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if rec["origin"] != "personal" {
		t.Errorf("origin = %v, want first alphabetical category", rec["origin"])
	}
}

func TestRetrieveNotFound(t *testing.T) {
	s, _ := tempKB(t)
	if _, err := s.Retrieve("ghost", "science"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Retrieve("ghost", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("any-category err = %v, want ErrNotFound", err)
	}
}

func TestRetrieveCorrupt(t *testing.T) {
	s, dir := tempKB(t)
	if err := os.WriteFile(filepath.Join(dir, "general", "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := s.Retrieve("bad", "general")
	if !errors.Is(err, apperr.ErrCorruptRecord) {
		t.Errorf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestDeleteThenRetrieve(t *testing.T) {
	s, _ := tempKB(t)
	_, _ = s.Store(models.Record{"name": "ephemeral"}, "general", "")

	cat, err := s.Delete("ephemeral", "general")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cat != "general" {
		t.Errorf("deleted category = %q", cat)
	}
	if _, err := s.Retrieve("ephemeral", "general"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("retrieve after delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	s, _ := tempKB(t)
	if _, err := s.Delete("ghost", "general"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Delete("ghost", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("any-category err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAnyCategoryFirstMatch(t *testing.T) {
	s, _ := tempKB(t)
	_, _ = s.Store(models.Record{"name": "twin"}, "science", "")
	_, _ = s.Store(models.Record{"name": "twin"}, "personal", "")

	cat, err := s.Delete("twin", "")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cat != "personal" {
		t.Errorf("deleted from %q, want personal (first alphabetical)", cat)
	}
	// The other copy survives.
	if _, err := s.Retrieve("twin", "science"); err != nil {
		t.Errorf("science copy should survive: %v", err)
	}
}

func TestList(t *testing.T) {
	s, _ := tempKB(t)
	_, _ = s.Store(models.Record{"name": "zebra"}, "science", "")
	_, _ = s.Store(models.Record{"name": "atom", "type": "concept"}, "science", "")
	_, _ = s.StoreText("hello", "Greeting", "general")

	sums, skipped, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d", skipped)
	}
	if len(sums) != 3 {
		t.Fatalf("len = %d, want 3", len(sums))
	}
	// Deterministic order: categories alphabetical, ids ascending within.
	if sums[0].Category != "general" || sums[0].ID != "Greeting" {
		t.Errorf("first = %s/%s", sums[0].Category, sums[0].ID)
	}
	if sums[1].ID != "atom" || sums[2].ID != "zebra" {
		t.Errorf("science order = %s, %s", sums[1].ID, sums[2].ID)
	}
	if sums[1].Kind != "concept" {
		t.Errorf("kind = %q", sums[1].Kind)
	}
}

func TestListEmptyCategory(t *testing.T) {
	s, _ := tempKB(t)
	sums, skipped, err := s.List("personal")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sums) != 0 || skipped != 0 {
		t.Errorf("len = %d, skipped = %d, want empty", len(sums), skipped)
	}
}

func TestListSkipsCorrupt(t *testing.T) {
	s, dir := tempKB(t)
	_, _ = s.Store(models.Record{"name": "good"}, "general", "")
	if err := os.WriteFile(filepath.Join(dir, "general", "bad.json"), []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}

	sums, skipped, err := s.List("general")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sums) != 1 {
		t.Errorf("len = %d, want 1", len(sums))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestFoldCase(t *testing.T) {
	s, _ := tempKBOpts(t, false, true)
	id, err := s.Store(models.Record{"name": "Einstein"}, "science", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id != "einstein" {
		t.Errorf("id = %q, want einstein", id)
	}
	// Lookup by the original display name still resolves.
	if _, err := s.Retrieve("Einstein", "science"); err != nil {
		t.Errorf("Retrieve: %v", err)
	}
}
