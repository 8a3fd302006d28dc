package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/knjigarna/internal/model"
)

const userColumns = `id, username, email, password_hash, role, created_at, updated_at, deleted_at`

// CreateUser creates a new user. Username and email must be unique among
// active users.
func CreateUser(ctx context.Context, db *sql.DB, username, email, passwordHash, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, model.NewValidationError("username", "required")
	}
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if !model.ValidRole(role) {
		return nil, model.NewValidationError("role", "must be admin or employee")
	}

	ts := now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		username, email, passwordHash, role, ts, ts,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %s: %w", username, model.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, including soft-deleted users so that
// ledger entries can still be attributed.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns an active user by username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of active users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateUserRole changes an active user's role.
func UpdateUserRole(ctx context.Context, db *sql.DB, id int64, role string) error {
	if !model.ValidRole(role) {
		return model.NewValidationError("role", "must be admin or employee")
	}
	return updateUser(ctx, db, id, "role", role)
}

// UpdateUserProfile changes an active user's email.
func UpdateUserProfile(ctx context.Context, db *sql.DB, id int64, email string) error {
	email = strings.TrimSpace(email)
	if err := model.ValidateEmail(email); err != nil {
		return err
	}
	return updateUser(ctx, db, id, "email", email)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	return updateUser(ctx, db, id, "password_hash", passwordHash)
}

func updateUser(ctx context.Context, db *sql.DB, id int64, column, value string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		value, now(), id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", column, model.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("updating user %s: %w", column, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// DeleteUser soft-deletes a user. Their ledger entries are kept.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}
