package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/testutil"
)

type testEnv struct {
	srv *httptest.Server
}

func newTestEnv(t *testing.T, authEnabled bool, token string) *testEnv {
	t.Helper()
	store, files, _ := testutil.TestStore(t)
	db := testutil.TestDB(t)
	svc := NewService(store, files, db, search.New(store))
	srv := httptest.NewServer(NewRouter(svc, authEnabled, token, nil))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, out.Bytes()
}

func decodeJSON(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode response %s: %v", data, err)
	}
}

func TestCreateAndGetEntry(t *testing.T) {
	env := newTestEnv(t, false, "")

	resp, body := env.do(t, http.MethodPost, "/entries", map[string]any{
		"record":   map[string]any{"name": "Einstein", "type": "person"},
		"category": "science",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var created map[string]string
	decodeJSON(t, body, &created)
	if created["id"] != "Einstein" || created["category"] != "science" {
		t.Errorf("created = %v", created)
	}

	resp, body = env.do(t, http.MethodGet, "/entries/science/Einstein", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var rec map[string]any
	decodeJSON(t, body, &rec)
	if rec["name"] != "Einstein" {
		t.Errorf("rec = %v", rec)
	}
	if _, ok := rec["_metadata"]; !ok {
		t.Error("record missing metadata sub-record")
	}

	// "-" retrieves from any category.
	resp, _ = env.do(t, http.MethodGet, "/entries/-/Einstein", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("any-category get status = %d", resp.StatusCode)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	env := newTestEnv(t, false, "")

	resp, _ := env.do(t, http.MethodPost, "/entries", map[string]any{
		"category": "science",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty record status = %d", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodPost, "/entries", map[string]any{
		"record":   map[string]any{"name": "x"},
		"category": "nope",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown category status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "unknown category") {
		t.Errorf("body = %s", body)
	}

	resp, _ = env.do(t, http.MethodPost, "/entries", map[string]any{
		"record": map[string]any{"note": "no name or title"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("nameless record status = %d", resp.StatusCode)
	}
}

func TestCreateText(t *testing.T) {
	env := newTestEnv(t, false, "")

	resp, body := env.do(t, http.MethodPost, "/entries/text", map[string]any{
		"text":     "Python is a programming language.",
		"title":    "Python Info",
		"category": "technology",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var created map[string]string
	decodeJSON(t, body, &created)
	if created["id"] != "Python_Info" {
		t.Errorf("created = %v", created)
	}

	resp, _ = env.do(t, http.MethodPost, "/entries/text", map[string]any{"title": "no text"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing text status = %d", resp.StatusCode)
	}
}

func TestListEntries(t *testing.T) {
	env := newTestEnv(t, false, "")
	for i := 0; i < 3; i++ {
		resp, body := env.do(t, http.MethodPost, "/entries", map[string]any{
			"record":   map[string]any{"name": fmt.Sprintf("entry-%d", i)},
			"category": "general",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed status = %d: %s", resp.StatusCode, body)
		}
	}

	resp, body := env.do(t, http.MethodGet, "/entries", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var page struct {
		Entries []EntryListItem `json:"entries"`
		Total   int             `json:"total"`
	}
	decodeJSON(t, body, &page)
	if page.Total != 3 || len(page.Entries) != 3 {
		t.Errorf("total = %d, len = %d", page.Total, len(page.Entries))
	}
	if page.Entries[0].ID != "entry-0" {
		t.Errorf("entries[0] = %+v", page.Entries[0])
	}

	resp, body = env.do(t, http.MethodGet, "/entries?limit=2&offset=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatal(resp.StatusCode)
	}
	decodeJSON(t, body, &page)
	if page.Total != 3 || len(page.Entries) != 1 {
		t.Errorf("paged total = %d, len = %d", page.Total, len(page.Entries))
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, false, "")
	_, _ = env.do(t, http.MethodPost, "/entries/text", map[string]any{
		"text": "Python is a programming language.", "title": "Python Info", "category": "technology",
	})

	resp, body := env.do(t, http.MethodGet, "/search?q=python", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res struct {
		Results []search.Result `json:"results"`
		Total   int             `json:"total"`
		Skipped int             `json:"skipped"`
	}
	decodeJSON(t, body, &res)
	if res.Total != 1 || len(res.Results) != 1 || res.Results[0].ID != "Python_Info" {
		t.Errorf("res = %+v", res)
	}

	// Scoped to a category without the entry.
	_, body = env.do(t, http.MethodGet, "/search?q=python&category=science", nil)
	decodeJSON(t, body, &res)
	if res.Total != 0 {
		t.Errorf("scoped total = %d", res.Total)
	}

	// Empty query returns an empty result array, not null.
	_, body = env.do(t, http.MethodGet, "/search", nil)
	if !strings.Contains(string(body), `"results":[]`) {
		t.Errorf("body = %s", body)
	}
}

func TestDeleteEntry(t *testing.T) {
	env := newTestEnv(t, false, "")
	_, _ = env.do(t, http.MethodPost, "/entries", map[string]any{
		"record": map[string]any{"name": "gone"}, "category": "general",
	})

	resp, _ := env.do(t, http.MethodDelete, "/entries/general/gone", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/entries/general/gone", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}

	// Index row removed too.
	_, body := env.do(t, http.MethodGet, "/entries", nil)
	var page struct {
		Total int `json:"total"`
	}
	decodeJSON(t, body, &page)
	if page.Total != 0 {
		t.Errorf("index total = %d after delete", page.Total)
	}

	resp, _ = env.do(t, http.MethodDelete, "/entries/general/gone", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
}

func TestImportEntries(t *testing.T) {
	env := newTestEnv(t, false, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "seed.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(`[{"name": "One"}, {"name": "Two"}]`)); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("category", "science"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/entries/import", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		IDs   []string `json:"ids"`
		Count int      `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 {
		t.Errorf("count = %d", out.Count)
	}

	getResp, _ := env.do(t, http.MethodGet, "/entries/science/One", nil)
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("imported entry get status = %d", getResp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, true, "secret-token")

	resp, _ := env.do(t, http.MethodGet, "/entries", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/entries", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", resp.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token status = %d", resp.StatusCode)
	}
}
