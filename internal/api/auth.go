package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/knjigarna/internal/auth"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	TokenTTL  time.Duration
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type updateProfileRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register handles POST /api/auth/register. The first user may register
// as admin; after that only an authenticated admin can create admins.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Role == "" {
		req.Role = model.RoleEmployee
	}
	if !model.ValidRole(req.Role) {
		writeStoreError(w, r, model.NewValidationError("role", "must be admin or employee"), "register")
		return
	}

	if req.Role == model.RoleAdmin {
		count, err := store.CountUsers(r.Context(), h.DB)
		if err != nil {
			writeStoreError(w, r, err, "register")
			return
		}
		if count > 0 && !h.callerIsAdmin(r) {
			jsonError(w, http.StatusForbidden, "only admins can create admin accounts")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeStoreError(w, r, err, "hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, req.Email, hash, req.Role)
	if err != nil {
		writeStoreError(w, r, err, "register")
		return
	}

	slog.Info("user registered", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// callerIsAdmin reports whether the request carries a valid admin token.
func (h *AuthHandler) callerIsAdmin(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	claims, _, _ := authenticate(r.Context(), h.JWTSecret, h.DB, strings.TrimPrefix(header, "Bearer "))
	return claims != nil && model.RoleAtLeast(claims.Role, model.RoleAdmin)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		writeStoreError(w, r, err, "log in")
		return
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Username, user.Role)
	if err != nil {
		writeStoreError(w, r, err, "generate token")
		return
	}
	claims, err := auth.ValidateToken(h.JWTSecret, token)
	if err != nil {
		writeStoreError(w, r, err, "generate token")
		return
	}

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	expires := time.Now().Add(auth.DefaultTokenTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expires); err != nil {
		writeStoreError(w, r, err, "log out")
		return
	}

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeStoreError(w, r, err, "get profile")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile. Changing the password
// requires the current one.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" && req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeStoreError(w, r, err, "update profile")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.NewPassword != "" {
		if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
			jsonError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			writeStoreError(w, r, err, "hash password")
			return
		}
		if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
			writeStoreError(w, r, err, "update password")
			return
		}
		slog.Info("user changed own password", "user", claims.Username)
	}

	if req.Email != "" && req.Email != user.Email {
		if err := store.UpdateUserProfile(r.Context(), h.DB, user.ID, req.Email); err != nil {
			writeStoreError(w, r, err, "update profile")
			return
		}
	}

	user, err = store.GetUser(r.Context(), h.DB, user.ID)
	if err != nil {
		writeStoreError(w, r, err, "update profile")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}
