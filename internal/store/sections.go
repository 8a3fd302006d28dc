package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/knjigarna/internal/model"
)

// CreateSection adds a section to the catalog.
func CreateSection(ctx context.Context, db *sql.DB, s model.Section) (*model.Section, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO sections (code, name, capacity, created_at) VALUES (?, ?, ?, ?)`,
		s.Code, s.Name, s.Capacity, now(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("section %s: %w", s.Code, model.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating section: %w", err)
	}

	return GetSection(ctx, db, s.Code)
}

// GetSection returns a section by code, or nil if it does not exist.
func GetSection(ctx context.Context, db *sql.DB, code string) (*model.Section, error) {
	s := &model.Section{}
	err := db.QueryRowContext(ctx,
		`SELECT code, name, capacity, created_at FROM sections WHERE code = ?`, code,
	).Scan(&s.Code, &s.Name, &s.Capacity, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting section: %w", err)
	}
	return s, nil
}

// ListSections returns the catalog ordered by code.
func ListSections(ctx context.Context, db *sql.DB) ([]model.Section, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT code, name, capacity, created_at FROM sections ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	defer rows.Close()

	sections := []model.Section{}
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.Code, &s.Name, &s.Capacity, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// DeleteSection removes a section from the catalog. Sections that still
// hold unsold books cannot be deleted. Ledger entries keep their location
// codes.
func DeleteSection(ctx context.Context, db *sql.DB, code string) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		var held int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM books WHERE location = ? AND status != ?`,
			code, model.BookStatusSold,
		).Scan(&held)
		if err != nil {
			return fmt.Errorf("counting books in section: %w", err)
		}
		if held > 0 {
			return fmt.Errorf("section %s holds %d books: %w", code, held, model.ErrInvalidState)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE code = ?`, code)
		if err != nil {
			return fmt.Errorf("deleting section: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("section %s: %w", code, model.ErrNotFound)
		}
		return nil
	})
}

// SeedDefaultSections inserts the default catalog, skipping codes that
// already exist. It returns the number of sections created.
func SeedDefaultSections(ctx context.Context, db *sql.DB) (int, error) {
	created := 0
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		ts := now()
		for _, s := range model.DefaultSections {
			result, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO sections (code, name, capacity, created_at) VALUES (?, ?, ?, ?)`,
				s.Code, s.Name, s.Capacity, ts,
			)
			if err != nil {
				return fmt.Errorf("seeding section %s: %w", s.Code, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("checking rows affected: %w", err)
			}
			created += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
