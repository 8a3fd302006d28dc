package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// SectionsHandler handles the section catalog and per-section stock views.
type SectionsHandler struct {
	DB               *sql.DB
	RestockThreshold int
}

// List handles GET /api/sections.
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sections, err := store.ListSections(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, r, err, "list sections")
		return
	}
	jsonResponse(w, http.StatusOK, sections)
}

// Create handles POST /api/sections.
func (h *SectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.Section
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	section, err := store.CreateSection(r.Context(), h.DB, req)
	if err != nil {
		writeStoreError(w, r, err, "create section")
		return
	}

	slog.Info("section created", "user", GetClaims(r.Context()).Username, "code", section.Code)
	jsonResponse(w, http.StatusCreated, section)
}

// Delete handles DELETE /api/sections/{code}.
func (h *SectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := store.DeleteSection(r.Context(), h.DB, code); err != nil {
		writeStoreError(w, r, err, "delete section")
		return
	}

	slog.Info("section deleted", "user", GetClaims(r.Context()).Username, "code", code)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "section deleted"})
}

// Books handles GET /api/sections/{code}/books. Only available books are
// listed unless a status parameter asks for another one.
func (h *SectionsHandler) Books(w http.ResponseWriter, r *http.Request) {
	f, err := bookFilter(r)
	if err != nil {
		writeStoreError(w, r, err, "list section books")
		return
	}
	if f.Status == "" {
		f.Status = model.BookStatusAvailable
	}
	f.Location = r.PathValue("code")

	books, err := store.ListBooks(r.Context(), h.DB, f)
	if err != nil {
		writeStoreError(w, r, err, "list section books")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"location": f.Location,
		"total":    len(books),
		"books":    books,
	})
}

// Stats handles GET /api/sections/stats.
func (h *SectionsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := store.AggregateByLocation(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, r, err, "aggregate sections")
		return
	}
	jsonResponse(w, http.StatusOK, counts)
}

// Recommendations handles GET /api/sections/recommendations.
func (h *SectionsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold", h.RestockThreshold)
	if err != nil {
		writeStoreError(w, r, err, "recommend restock")
		return
	}

	recs, err := store.RestockRecommendations(r.Context(), h.DB, threshold)
	if err != nil {
		writeStoreError(w, r, err, "recommend restock")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"threshold":       threshold,
		"recommendations": recs,
	})
}
