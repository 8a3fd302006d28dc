package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjigarna/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeStoreError maps store errors to HTTP responses. Unexpected errors
// are logged and reported as 500 with a generic message.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": ve.Errors,
		})
	case errors.Is(err, model.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidState):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrAlreadyExists):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("failed to "+action, "error", err, "request_id", RequestIDFrom(r.Context()))
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
