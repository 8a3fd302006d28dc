package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/knjigarna/internal/imaging"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// BooksHandler handles book endpoints. Every mutation is attributed to the
// authenticated user.
type BooksHandler struct {
	DB    *sql.DB
	Cover imaging.Options
}

type sellRequest struct {
	Note string `json:"note"`
}

type moveRequest struct {
	ToLocation string `json:"to_location"`
	Note       string `json:"note"`
}

// List handles GET /api/books.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := bookFilter(r)
	if err != nil {
		writeStoreError(w, r, err, "list books")
		return
	}

	books, err := store.ListBooks(r.Context(), h.DB, f)
	if err != nil {
		writeStoreError(w, r, err, "list books")
		return
	}
	jsonResponse(w, http.StatusOK, books)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewBook
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	book, err := store.AddBook(r.Context(), h.DB, claims.UserID, req)
	if err != nil {
		writeStoreError(w, r, err, "add book")
		return
	}

	slog.Info("book added", "user", claims.Username, "book_id", book.ID, "title", book.Title, "location", book.LocationValue())
	jsonResponse(w, http.StatusCreated, book)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "get book")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err, "get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}
	jsonResponse(w, http.StatusOK, book)
}

// Update handles PUT /api/books/{id}. Only the fields present in the body
// are changed; null clears location, category or description.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "update book")
		return
	}

	var req model.BookUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	book, err := store.UpdateBook(r.Context(), h.DB, claims.UserID, id, req)
	if err != nil {
		writeStoreError(w, r, err, "update book")
		return
	}

	slog.Info("book updated", "user", claims.Username, "book_id", id)
	jsonResponse(w, http.StatusOK, book)
}

// Sell handles POST /api/books/{id}/sell. The body is optional.
func (h *BooksHandler) Sell(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "sell book")
		return
	}

	var req sellRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	book, err := store.SellBook(r.Context(), h.DB, claims.UserID, id, req.Note)
	if err != nil {
		writeStoreError(w, r, err, "sell book")
		return
	}

	slog.Info("book sold", "user", claims.Username, "book_id", id, "location", book.LocationValue())
	jsonResponse(w, http.StatusOK, book)
}

// Move handles POST /api/books/{id}/move.
func (h *BooksHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "move book")
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	book, err := store.MoveBook(r.Context(), h.DB, claims.UserID, id, req.ToLocation, req.Note)
	if err != nil {
		writeStoreError(w, r, err, "move book")
		return
	}

	slog.Info("book moved", "user", claims.Username, "book_id", id, "to", book.LocationValue())
	jsonResponse(w, http.StatusOK, book)
}

// History handles GET /api/books/{id}/history.
func (h *BooksHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "get history")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err, "get history")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	history, err := store.GetBookHistory(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err, "get history")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"book":    book,
		"history": history,
	})
}

// UploadImage handles PUT /api/books/{id}/image. The body is the raw image.
func (h *BooksHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "upload image")
		return
	}
	defer r.Body.Close()

	cover, err := imaging.ProcessCover(r.Body, h.Cover)
	if errors.Is(err, imaging.ErrTooLarge) {
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetBookImage(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		writeStoreError(w, r, err, "save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   cover.Width,
		"height":  cover.Height,
	})
}

// GetImage handles GET /api/books/{id}/image.
func (h *BooksHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "get image")
		return
	}

	data, mime, err := store.GetBookImage(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err, "get image")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
