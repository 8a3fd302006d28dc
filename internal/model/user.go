package model

import (
	"fmt"
	"strings"
	"time"
)

// User is an account that can log in and act on stock.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEmployee
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:    2,
		RoleEmployee: 1,
	}
	return levels[role] >= levels[minimum] && levels[role] > 0 && levels[minimum] > 0
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// ValidateEmail does a shallow syntax check of an email address.
func ValidateEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\n") {
		return NewValidationError("email", "invalid email address")
	}
	return nil
}
