package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjigarna/internal/auth"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type updateUserRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, r, err, "list users")
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}. Non-admins may only read themselves.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "get user")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID != id && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err, "get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}. Any of role, email and password may
// be given; a password set here is a reset and needs no current password.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "update user")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" && req.Email == "" && req.Password == "" {
		jsonError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	claims := GetClaims(r.Context())
	if req.Role != "" && req.Role != model.RoleAdmin && claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot demote yourself")
		return
	}

	if req.Role != "" {
		if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
			writeStoreError(w, r, err, "update user")
			return
		}
	}
	if req.Email != "" {
		if err := store.UpdateUserProfile(r.Context(), h.DB, id, req.Email); err != nil {
			writeStoreError(w, r, err, "update user")
			return
		}
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeStoreError(w, r, err, "hash password")
			return
		}
		if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
			writeStoreError(w, r, err, "update user")
			return
		}
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, r, err, "update user")
		return
	}
	slog.Info("user updated", "user", claims.Username, "target_user", user.Username,
		"role_changed", req.Role != "", "password_reset", req.Password != "")
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeStoreError(w, r, err, "delete user")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	// Look up target name before deleting.
	target, _ := store.GetUser(r.Context(), h.DB, id)
	targetName := fmt.Sprintf("id:%d", id)
	if target != nil {
		targetName = target.Username
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, r, err, "delete user")
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", targetName)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
