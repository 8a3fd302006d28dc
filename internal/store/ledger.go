package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/erazemk/knjigarna/internal/model"
)

var entryColumns = []string{
	"le.id", "le.book_id", "le.actor_id", "le.kind",
	"le.from_location", "le.to_location", "le.from_status", "le.to_status",
	"le.note", "le.created_at", "b.title", "u.username",
}

// appendEntry inserts a ledger entry inside the caller's transaction and
// sets its ID. Entries are never updated or deleted.
func appendEntry(ctx context.Context, q querier, e *model.LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	result, err := q.ExecContext(ctx,
		`INSERT INTO ledger_entries (book_id, actor_id, kind, from_location, to_location, from_status, to_status, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BookID, e.ActorID, e.Kind, e.FromLocation, e.ToLocation, e.FromStatus, e.ToStatus, e.Note, e.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("recording %s entry: actor %d: %w", e.Kind, e.ActorID, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("recording %s entry: %w", e.Kind, err)
	}

	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting entry id: %w", err)
	}
	return nil
}

// ListLedger returns ledger entries matching the filter, newest first.
func ListLedger(ctx context.Context, db *sql.DB, f model.LedgerFilter) ([]model.LedgerEntry, error) {
	sb := ledgerSelect()
	if f.BookID > 0 {
		sb = sb.Where(squirrel.Eq{"le.book_id": f.BookID})
	}
	if f.Kind != "" {
		sb = sb.Where(squirrel.Eq{"le.kind": f.Kind})
	}
	if f.ActorID > 0 {
		sb = sb.Where(squirrel.Eq{"le.actor_id": f.ActorID})
	}
	sb = whereCreatedBetween(sb, "le.created_at", f.From, f.To)

	query, args, err := sb.OrderBy("le.created_at DESC", "le.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetBookHistory returns all ledger entries for a book, newest first.
func GetBookHistory(ctx context.Context, db *sql.DB, bookID int64) ([]model.LedgerEntry, error) {
	entries, err := ListLedger(ctx, db, model.LedgerFilter{BookID: bookID})
	if err != nil {
		return nil, fmt.Errorf("getting book history: %w", err)
	}
	return entries, nil
}

func ledgerSelect() squirrel.SelectBuilder {
	return squirrel.Select(entryColumns...).
		From("ledger_entries le").
		Join("books b ON b.id = le.book_id").
		Join("users u ON u.id = le.actor_id")
}

func scanEntry(row rowScanner, e *model.LedgerEntry) error {
	var fromLoc, toLoc, fromStatus, toStatus sql.NullString
	err := row.Scan(&e.ID, &e.BookID, &e.ActorID, &e.Kind,
		&fromLoc, &toLoc, &fromStatus, &toStatus,
		&e.Note, &e.CreatedAt, &e.BookTitle, &e.ActorUsername)
	if err != nil {
		return err
	}
	e.FromLocation = nullStringPtr(fromLoc)
	e.ToLocation = nullStringPtr(toLoc)
	e.FromStatus = nullStringPtr(fromStatus)
	e.ToStatus = nullStringPtr(toStatus)
	return nil
}

func scanEntries(rows *sql.Rows) ([]model.LedgerEntry, error) {
	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
