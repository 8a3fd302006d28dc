package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "test@knjigarna.si", "hash123", model.RoleEmployee)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleEmployee {
		t.Errorf("expected role 'employee', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "test@knjigarna.si" {
		t.Errorf("expected email 'test@knjigarna.si', got %q", got.Email)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "alice", "alice@knjigarna.si", "hash", model.RoleEmployee); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err := CreateUser(ctx, database, "alice", "other@knjigarna.si", "hash", model.RoleEmployee)
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("duplicate username: expected ErrAlreadyExists, got %v", err)
	}

	_, err = CreateUser(ctx, database, "alice2", "alice@knjigarna.si", "hash", model.RoleEmployee)
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("duplicate email: expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, "bob", "not-an-email", "hash", model.RoleEmployee)
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for bad email, got %v", err)
	}

	_, err = CreateUser(ctx, database, "bob", "bob@knjigarna.si", "hash", "manager")
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for bad role, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "alice@knjigarna.si", "hash", model.RoleAdmin)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestListAndCountUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "a@knjigarna.si", "hash", model.RoleEmployee)
	CreateUser(ctx, database, "b", "b@knjigarna.si", "hash", model.RoleAdmin)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	n, err := CountUsers(ctx, database)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "deleteme", "d@knjigarna.si", "hash", model.RoleEmployee)
	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}

	// Still fetchable by ID for ledger attribution.
	got, _ := GetUser(ctx, database, user.ID)
	if got == nil || got.DeletedAt == nil {
		t.Error("expected soft-deleted user with deleted_at set")
	}

	if err := DeleteUser(ctx, database, user.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	// The username is free again.
	if _, err := CreateUser(ctx, database, "deleteme", "d@knjigarna.si", "hash", model.RoleEmployee); err != nil {
		t.Errorf("re-creating deleted username: %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "pw@knjigarna.si", "oldhash", model.RoleEmployee)
	CreateUser(ctx, database, "other", "other@knjigarna.si", "hash", model.RoleEmployee)

	if err := UpdateUserPassword(ctx, database, user.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	if err := UpdateUserRole(ctx, database, user.ID, model.RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	if err := UpdateUserProfile(ctx, database, user.ID, "new@knjigarna.si"); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("expected role admin, got %q", got.Role)
	}
	if got.Email != "new@knjigarna.si" {
		t.Errorf("expected new email, got %q", got.Email)
	}

	if err := UpdateUserProfile(ctx, database, user.ID, "other@knjigarna.si"); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for taken email, got %v", err)
	}
	if err := UpdateUserRole(ctx, database, 9999, model.RoleAdmin); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
