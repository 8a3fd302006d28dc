package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/erazemk/knjigarna/internal/model"
)

var bookColumns = []string{
	"b.id", "b.title", "b.author", "b.category", "b.description",
	"b.location", "b.status", "b.image_mime", "b.created_at", "b.updated_at",
}

// AddBook adds a new book to stock and records an addition entry.
func AddBook(ctx context.Context, db *sql.DB, actorID int64, nb model.NewBook) (*model.Book, error) {
	if err := nb.Validate(); err != nil {
		return nil, err
	}

	var id int64
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		ts := now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO books (title, author, category, description, location, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			nb.Title, nb.Author, nb.Category, nb.Description, nb.Location, model.BookStatusAvailable, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("inserting book: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting book id: %w", err)
		}

		return appendEntry(ctx, tx, &model.LedgerEntry{
			BookID:     id,
			ActorID:    actorID,
			Kind:       model.EntryKindAddition,
			ToLocation: nb.Location,
			ToStatus:   strPtr(model.BookStatusAvailable),
			Note:       nb.Note,
			CreatedAt:  ts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("adding book: %w", err)
	}

	return GetBook(ctx, db, id)
}

// UpdateBook applies a partial update. Location and status changes are
// recorded in the ledger; descriptive fields are not.
func UpdateBook(ctx context.Context, db *sql.DB, actorID, id int64, upd model.BookUpdate) (*model.Book, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	err := withTx(ctx, db, func(tx *sql.Tx) error {
		cur, err := getBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("book %d: %w", id, model.ErrNotFound)
		}

		update := squirrel.Update("books").Where(squirrel.Eq{"id": id})
		changed := false

		if upd.Title.Set {
			update = update.Set("title", strings.TrimSpace(upd.Title.Value))
			changed = true
		}
		if upd.Author.Set {
			update = update.Set("author", strings.TrimSpace(upd.Author.Value))
			changed = true
		}
		if upd.Category.Set {
			update = update.Set("category", strings.TrimSpace(upd.Category.Value))
			changed = true
		}
		if upd.Description.Set {
			update = update.Set("description", upd.Description.Value)
			changed = true
		}

		var newLocation *string
		moved := false
		if upd.Location.Set {
			newLocation = upd.Location.Ptr()
			if newLocation != nil {
				*newLocation = strings.TrimSpace(*newLocation)
			}
			moved = !sameLocation(cur.Location, newLocation)
		}
		statusChanged := upd.Status.Set && upd.Status.Value != cur.Status

		if (moved || statusChanged) && cur.Status == model.BookStatusSold {
			return fmt.Errorf("book %d is sold: %w", id, model.ErrInvalidState)
		}
		if moved {
			update = update.Set("location", newLocation)
		}
		if statusChanged {
			update = update.Set("status", upd.Status.Value)
		}
		if !changed && !moved && !statusChanged {
			return nil
		}

		ts := now()
		query, args, err := update.Set("updated_at", ts).ToSql()
		if err != nil {
			return fmt.Errorf("building update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating book: %w", err)
		}

		if moved {
			err := appendEntry(ctx, tx, &model.LedgerEntry{
				BookID:       id,
				ActorID:      actorID,
				Kind:         model.EntryKindMovement,
				FromLocation: cur.Location,
				ToLocation:   newLocation,
				Note:         upd.Note,
				CreatedAt:    ts,
			})
			if err != nil {
				return err
			}
			cur.Location = newLocation
		}
		if statusChanged {
			return appendEntry(ctx, tx, &model.LedgerEntry{
				BookID:       id,
				ActorID:      actorID,
				Kind:         model.EntryKindStatus,
				FromLocation: cur.Location,
				ToLocation:   cur.Location,
				FromStatus:   strPtr(cur.Status),
				ToStatus:     strPtr(upd.Status.Value),
				Note:         upd.Note,
				CreatedAt:    ts,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating book: %w", err)
	}

	return GetBook(ctx, db, id)
}

// SellBook marks an available book as sold and records a sale entry. Of two
// concurrent sales of the same book exactly one succeeds.
func SellBook(ctx context.Context, db *sql.DB, actorID, id int64, note string) (*model.Book, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		cur, err := getBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("book %d: %w", id, model.ErrNotFound)
		}
		if cur.Status != model.BookStatusAvailable {
			return fmt.Errorf("book %d is %s: %w", id, cur.Status, model.ErrInvalidState)
		}

		ts := now()
		result, err := tx.ExecContext(ctx,
			`UPDATE books SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			model.BookStatusSold, ts, id, model.BookStatusAvailable,
		)
		if err != nil {
			return fmt.Errorf("updating book status: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("book %d is no longer available: %w", id, model.ErrInvalidState)
		}

		return appendEntry(ctx, tx, &model.LedgerEntry{
			BookID:       id,
			ActorID:      actorID,
			Kind:         model.EntryKindSale,
			FromLocation: cur.Location,
			FromStatus:   strPtr(model.BookStatusAvailable),
			ToStatus:     strPtr(model.BookStatusSold),
			Note:         note,
			CreatedAt:    ts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("selling book: %w", err)
	}

	return GetBook(ctx, db, id)
}

// MoveBook moves an available book to another section and records a
// movement entry.
func MoveBook(ctx context.Context, db *sql.DB, actorID, id int64, toLocation, note string) (*model.Book, error) {
	toLocation = strings.TrimSpace(toLocation)
	if toLocation == "" {
		return nil, model.NewValidationError("to_location", "required")
	}

	err := withTx(ctx, db, func(tx *sql.Tx) error {
		cur, err := getBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("book %d: %w", id, model.ErrNotFound)
		}
		if cur.Status != model.BookStatusAvailable {
			return fmt.Errorf("book %d is %s: %w", id, cur.Status, model.ErrInvalidState)
		}
		if cur.LocationValue() == toLocation {
			return model.NewValidationError("to_location", "book is already at "+toLocation)
		}

		ts := now()
		result, err := tx.ExecContext(ctx,
			`UPDATE books SET location = ?, updated_at = ? WHERE id = ? AND status = ?`,
			toLocation, ts, id, model.BookStatusAvailable,
		)
		if err != nil {
			return fmt.Errorf("updating book location: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("book %d is no longer available: %w", id, model.ErrInvalidState)
		}

		return appendEntry(ctx, tx, &model.LedgerEntry{
			BookID:       id,
			ActorID:      actorID,
			Kind:         model.EntryKindMovement,
			FromLocation: cur.Location,
			ToLocation:   &toLocation,
			Note:         note,
			CreatedAt:    ts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("moving book: %w", err)
	}

	return GetBook(ctx, db, id)
}

// GetBook returns a book by ID, or nil if it does not exist.
func GetBook(ctx context.Context, db *sql.DB, id int64) (*model.Book, error) {
	return getBook(ctx, db, id)
}

func getBook(ctx context.Context, q querier, id int64) (*model.Book, error) {
	query, args, err := squirrel.Select(bookColumns...).
		From("books b").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	b, err := scanBook(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return b, nil
}

// ListBooks returns books matching all non-empty filter fields, ordered by title.
func ListBooks(ctx context.Context, db *sql.DB, f model.BookFilter) ([]model.Book, error) {
	sb := squirrel.Select(bookColumns...).From("books b")
	if f.Status != "" {
		sb = sb.Where(squirrel.Eq{"b.status": f.Status})
	}
	if f.Category != "" {
		sb = sb.Where(squirrel.Eq{"b.category": f.Category})
	}
	if f.Location != "" {
		sb = sb.Where(squirrel.Eq{"b.location": f.Location})
	}

	query, args, err := sb.OrderBy("b.title", "b.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// SetBookImage sets a book's cover image.
func SetBookImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting book image: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("book %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetBookImage returns a book's cover image and MIME type. Both are empty
// when the book has no image.
func GetBookImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM books WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book image: %w", err)
	}
	return image, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*model.Book, error) {
	b := &model.Book{}
	var location, imageMime sql.NullString
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Description,
		&location, &b.Status, &imageMime, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if location.Valid {
		b.Location = &location.String
	}
	b.ImageMime = imageMime.String
	return b, nil
}

func sameLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func strPtr(s string) *string {
	return &s
}
