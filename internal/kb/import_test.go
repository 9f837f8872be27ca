package kb

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/othala/internal/apperr"
)

func TestImportJSONSingleObject(t *testing.T) {
	s, _ := tempKB(t)
	ids, err := s.ImportJSON([]byte(`{"name": "Solo", "type": "concept"}`), "science")
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"Solo"}) {
		t.Errorf("ids = %v", ids)
	}
	if _, err := s.Retrieve("Solo", "science"); err != nil {
		t.Errorf("Retrieve: %v", err)
	}
}

func TestImportJSONArray(t *testing.T) {
	s, _ := tempKB(t)
	doc := `[{"name": "One"}, {"title": "Two"}]`
	ids, err := s.ImportJSON([]byte(doc), "")
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"One", "Two"}) {
		t.Errorf("ids = %v", ids)
	}
	for _, id := range ids {
		if _, err := s.Retrieve(id, DefaultCategory); err != nil {
			t.Errorf("Retrieve %s: %v", id, err)
		}
	}
}

func TestImportJSONMalformed(t *testing.T) {
	s, _ := tempKB(t)
	if _, err := s.ImportJSON([]byte(`[{"name":`), ""); !errors.Is(err, apperr.ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestImportJSONPartialFailure(t *testing.T) {
	s, _ := tempKB(t)
	// The second record has nothing to derive an identifier from, so the
	// import stops there and reports what landed.
	doc := `[{"name": "Kept"}, {"note": "nameless"}]`
	ids, err := s.ImportJSON([]byte(doc), "")
	if !errors.Is(err, apperr.ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
	if !reflect.DeepEqual(ids, []string{"Kept"}) {
		t.Errorf("ids = %v", ids)
	}
	if _, err := s.Retrieve("Kept", DefaultCategory); err != nil {
		t.Errorf("earlier record should remain stored: %v", err)
	}
}

func TestImportFile(t *testing.T) {
	s, _ := tempKB(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(`{"name": "Seeded"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := s.ImportFile(path, "personal")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"Seeded"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestImportFileMissing(t *testing.T) {
	s, _ := tempKB(t)
	if _, err := s.ImportFile(filepath.Join(t.TempDir(), "nope.json"), ""); err == nil {
		t.Error("expected error for missing file")
	}
}
