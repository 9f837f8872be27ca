package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/search"
)

const maxBodyBytes = 10 << 20 // 10 MB

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// anyCategory is the path segment standing in for "search all categories".
const anyCategory = "-"

func categoryParam(r *http.Request) string {
	cat := chi.URLParam(r, "category")
	if cat == anyCategory {
		return ""
	}
	return cat
}

// writeAppErr maps the store error taxonomy to HTTP statuses.
func writeAppErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnknownCategory):
		writeJSON(w, http.StatusBadRequest, errorBody("unknown category"))
	case errors.Is(err, apperr.ErrInvalidEntry):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid entry"))
	case errors.Is(err, apperr.ErrCorruptRecord):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("corrupt record"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// EntryListItem is a lightweight item in a list response.
type EntryListItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      string `json:"kind,omitempty"`
	Category  string `json:"category"`
	UpdatedAt string `json:"updated_at"`
}

// ListEntries handles GET /entries with optional pagination and
// category filter.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	category := q.Get("category")

	rows, total, err := h.svc.List(limit, offset, category)
	if err != nil {
		writeAppErr(w, "list entries", err)
		return
	}
	items := make([]EntryListItem, len(rows))
	for i, row := range rows {
		items[i] = EntryListItem{
			ID:        row.ID,
			Title:     row.Title,
			Kind:      row.Kind,
			Category:  row.Category,
			UpdatedAt: row.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": items,
		"total":   total,
	})
}

// CreateEntry handles POST /entries.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req struct {
		Record   models.Record `json:"record"`
		Category string        `json:"category"`
		ID       string        `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Record) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("record is required"))
		return
	}
	id, category, err := h.svc.StoreRecord(req.Record, req.Category, req.ID)
	if err != nil {
		writeAppErr(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "category": category})
}

// CreateText handles POST /entries/text.
func (h *Handler) CreateText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req struct {
		Text     string `json:"text"`
		Title    string `json:"title"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	id, category, err := h.svc.StoreText(req.Text, req.Title, req.Category)
	if err != nil {
		writeAppErr(w, "create text entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "category": category})
}

// ImportEntries handles POST /entries/import (multipart/form-data,
// field "file" holding a JSON record or array of records).
func (h *Handler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	ids, err := h.svc.Import(data, r.FormValue("category"))
	if err != nil {
		writeAppErr(w, "import entries", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids, "count": len(ids)})
}

// GetEntry handles GET /entries/{category}/{id}. The category segment
// "-" retrieves from any category, first alphabetical match wins.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	rec, err := h.svc.Get(id, categoryParam(r))
	if err != nil {
		writeAppErr(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteEntry handles DELETE /entries/{category}/{id}.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if _, err := h.svc.Delete(id, categoryParam(r)); err != nil {
		writeAppErr(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchEntries handles GET /search. The response carries the count of
// corrupt records skipped during the scan.
func (h *Handler) SearchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, skipped, err := h.svc.Search(q.Get("q"), q.Get("category"))
	if err != nil {
		writeAppErr(w, "search", err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
		"skipped": skipped,
	})
}
