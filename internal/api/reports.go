package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjigarna/internal/store"
)

// ReportsHandler serves read-only reports.
type ReportsHandler struct {
	DB *sql.DB
}

// Inventory handles GET /api/reports/inventory.
func (h *ReportsHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	f, err := bookFilter(r)
	if err != nil {
		writeStoreError(w, r, err, "build inventory report")
		return
	}

	report, err := store.InventoryReport(r.Context(), h.DB, f)
	if err != nil {
		writeStoreError(w, r, err, "build inventory report")
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Sales handles GET /api/reports/sales. Optional employee_id narrows the
// report to one seller.
func (h *ReportsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeStoreError(w, r, err, "build sales report")
		return
	}
	actorID, err := queryInt64(r, "employee_id")
	if err != nil {
		writeStoreError(w, r, err, "build sales report")
		return
	}

	report, err := store.SalesReport(r.Context(), h.DB, from, to, actorID)
	if err != nil {
		writeStoreError(w, r, err, "build sales report")
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Performance handles GET /api/reports/performance.
func (h *ReportsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeStoreError(w, r, err, "build performance report")
		return
	}

	report, err := store.PerformanceReport(r.Context(), h.DB, from, to)
	if err != nil {
		writeStoreError(w, r, err, "build performance report")
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Categories handles GET /api/reports/categories.
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeStoreError(w, r, err, "rank categories")
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeStoreError(w, r, err, "rank categories")
		return
	}

	cats, err := store.PopularCategories(r.Context(), h.DB, from, to, limit)
	if err != nil {
		writeStoreError(w, r, err, "rank categories")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"from":       from,
		"to":         to,
		"categories": cats,
	})
}
