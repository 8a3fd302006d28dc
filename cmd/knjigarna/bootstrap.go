package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/knjigarna/internal/auth"
	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// openDatabase opens the database and ensures the schema exists.
func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

// bootstrap seeds the default sections and creates an admin with a random
// password. It returns the password, which is not stored anywhere else.
func bootstrap(ctx context.Context, database *sql.DB, username, email string) (string, error) {
	if _, err := store.SeedDefaultSections(ctx, database); err != nil {
		return "", fmt.Errorf("seeding sections: %w", err)
	}

	password, err := auth.RandomPassword()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, email, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database ready: %s\n", dbPath)
	fmt.Printf("Default sections: %d\n", len(model.DefaultSections))
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}
