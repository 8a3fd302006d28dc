package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// LedgerHandler serves the ledger.
type LedgerHandler struct {
	DB *sql.DB
}

// List handles GET /api/ledger. Filters: book_id, kind, actor_id, from, to.
// Non-admins only see their own entries.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	var f model.LedgerFilter
	var err error

	if f.BookID, err = queryInt64(r, "book_id"); err != nil {
		writeStoreError(w, r, err, "list ledger")
		return
	}
	if f.ActorID, err = queryInt64(r, "actor_id"); err != nil {
		writeStoreError(w, r, err, "list ledger")
		return
	}
	f.Kind = r.URL.Query().Get("kind")
	if f.Kind != "" && !model.ValidEntryKind(f.Kind) {
		writeStoreError(w, r, model.NewValidationError("kind", "must be addition, movement, sale or status"), "list ledger")
		return
	}
	if f.From, f.To, err = optionalDateRange(r); err != nil {
		writeStoreError(w, r, err, "list ledger")
		return
	}

	claims := GetClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		f.ActorID = claims.UserID
	}

	entries, err := store.ListLedger(r.Context(), h.DB, f)
	if err != nil {
		writeStoreError(w, r, err, "list ledger")
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}
