package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
)

func newActor(t *testing.T, database *sql.DB, username string) int64 {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, username+"@knjigarna.si", "hash", model.RoleEmployee)
	require.NoError(t, err)
	return u.ID
}

func addBook(t *testing.T, database *sql.DB, actorID int64, title, category, location string) *model.Book {
	t.Helper()
	nb := model.NewBook{Title: title, Author: "Author of " + title, Category: category}
	if location != "" {
		nb.Location = &location
	}
	b, err := AddBook(context.Background(), database, actorID, nb)
	require.NoError(t, err)
	return b
}

func decodeUpdate(t *testing.T, body string) model.BookUpdate {
	t.Helper()
	var u model.BookUpdate
	require.NoError(t, json.Unmarshal([]byte(body), &u))
	return u
}

func TestAddBook(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")

	loc := "A1"
	book, err := AddBook(ctx, database, actor, model.NewBook{Title: "Dune", Author: "Herbert", Location: &loc, Note: "new delivery"})
	require.NoError(t, err)
	assert.Equal(t, model.BookStatusAvailable, book.Status)
	assert.Equal(t, "A1", book.LocationValue())

	history, err := GetBookHistory(ctx, database, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	e := history[0]
	assert.Equal(t, model.EntryKindAddition, e.Kind)
	assert.Nil(t, e.FromLocation)
	require.NotNil(t, e.ToLocation)
	assert.Equal(t, "A1", *e.ToLocation)
	assert.Equal(t, actor, e.ActorID)
	assert.Equal(t, "Dune", e.BookTitle)
	assert.Equal(t, "ana", e.ActorUsername)
	assert.Equal(t, "new delivery", e.Note)
}

func TestAddBookValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")

	_, err := AddBook(ctx, database, actor, model.NewBook{Title: "  ", Author: "Herbert"})
	assert.ErrorIs(t, err, model.ErrValidation)

	books, err := ListBooks(ctx, database, model.BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestAddBookUnknownActorRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := AddBook(ctx, database, 9999, model.NewBook{Title: "Dune", Author: "Herbert"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)

	var books, entries int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&books))
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM ledger_entries`).Scan(&entries))
	assert.Zero(t, books, "book insert should be rolled back")
	assert.Zero(t, entries)
}

func TestMoveThenSell(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")
	book := addBook(t, database, actor, "Dune", "Sci-Fi", "A1")

	moved, err := MoveBook(ctx, database, actor, book.ID, "B2", "")
	require.NoError(t, err)
	assert.Equal(t, "B2", moved.LocationValue())

	sold, err := SellBook(ctx, database, actor, book.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.BookStatusSold, sold.Status)

	history, err := GetBookHistory(ctx, database, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first.
	assert.Equal(t, model.EntryKindSale, history[0].Kind)
	assert.Equal(t, model.EntryKindMovement, history[1].Kind)
	assert.Equal(t, model.EntryKindAddition, history[2].Kind)

	assert.Equal(t, "A1", *history[1].FromLocation)
	assert.Equal(t, "B2", *history[1].ToLocation)
	assert.Equal(t, "B2", *history[0].FromLocation)
	assert.Nil(t, history[0].ToLocation)
}

func TestSellTwice(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")
	book := addBook(t, database, actor, "Dune", "Sci-Fi", "A1")

	_, err := SellBook(ctx, database, actor, book.ID, "")
	require.NoError(t, err)

	_, err = SellBook(ctx, database, actor, book.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	history, err := GetBookHistory(ctx, database, book.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "failed sale must not append an entry")
}

func TestSellMissingBook(t *testing.T) {
	database := db.NewTestDB(t)
	actor := newActor(t, database, "ana")

	_, err := SellBook(context.Background(), database, actor, 42, "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentSell(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newActor(t, database, "ana")
	b := newActor(t, database, "bor")
	book := addBook(t, database, a, "Dune", "Sci-Fi", "A1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []int64{a, b} {
		wg.Add(1)
		go func(i int, actor int64) {
			defer wg.Done()
			_, errs[i] = SellBook(ctx, database, actor, book.ID, "")
		}(i, actor)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, model.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)

	sales, err := ListLedger(ctx, database, model.LedgerFilter{BookID: book.ID, Kind: model.EntryKindSale})
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestMoveBookRules(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")
	book := addBook(t, database, actor, "Dune", "Sci-Fi", "A1")

	_, err := MoveBook(ctx, database, actor, book.ID, "  ", "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = MoveBook(ctx, database, actor, book.ID, "A1", "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = MoveBook(ctx, database, actor, 9999, "B2", "")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"status":"reserved"}`))
	require.NoError(t, err)
	_, err = MoveBook(ctx, database, actor, book.ID, "B2", "")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	history, err := GetBookHistory(ctx, database, book.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "addition and status entries only")
}

func TestUpdateBookLocation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")
	book := addBook(t, database, actor, "Dune", "Sci-Fi", "A1")

	// Same location: nothing auditable changes.
	_, err := UpdateBook(ctx, database, actor, book.ID, model.BookUpdate{Location: model.Some("A1")})
	require.NoError(t, err)
	history, _ := GetBookHistory(ctx, database, book.ID)
	assert.Len(t, history, 1)

	// Descriptive change only.
	updated, err := UpdateBook(ctx, database, actor, book.ID, model.BookUpdate{Description: model.Some("Desert planet")})
	require.NoError(t, err)
	assert.Equal(t, "Desert planet", updated.Description)
	history, _ = GetBookHistory(ctx, database, book.ID)
	assert.Len(t, history, 1)

	// Clearing the location is a movement to nowhere.
	updated, err = UpdateBook(ctx, database, actor, book.ID, model.BookUpdate{Location: model.Null[string](), Note: "pulled"})
	require.NoError(t, err)
	assert.Nil(t, updated.Location)

	history, _ = GetBookHistory(ctx, database, book.ID)
	require.Len(t, history, 2)
	assert.Equal(t, model.EntryKindMovement, history[0].Kind)
	assert.Equal(t, "A1", *history[0].FromLocation)
	assert.Nil(t, history[0].ToLocation)
	assert.Equal(t, "pulled", history[0].Note)

	// Locations are trimmed before comparison.
	updated, err = UpdateBook(ctx, database, actor, book.ID, model.BookUpdate{Location: model.Some("  B2 ")})
	require.NoError(t, err)
	assert.Equal(t, "B2", updated.LocationValue())
	history, _ = GetBookHistory(ctx, database, book.ID)
	require.Len(t, history, 3)
	assert.Equal(t, "B2", *history[0].ToLocation)

	_, err = UpdateBook(ctx, database, actor, 9999, model.BookUpdate{Title: model.Some("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateBookStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")
	book := addBook(t, database, actor, "Dune", "Sci-Fi", "A1")

	_, err := UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"status":"sold"}`))
	assert.ErrorIs(t, err, model.ErrValidation)

	updated, err := UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"status":"reserved","location":"B2"}`))
	require.NoError(t, err)
	assert.Equal(t, model.BookStatusReserved, updated.Status)
	assert.Equal(t, "B2", updated.LocationValue())

	history, _ := GetBookHistory(ctx, database, book.ID)
	require.Len(t, history, 3)
	assert.Equal(t, model.EntryKindStatus, history[0].Kind)
	assert.Equal(t, model.BookStatusAvailable, *history[0].FromStatus)
	assert.Equal(t, model.BookStatusReserved, *history[0].ToStatus)
	assert.Equal(t, model.EntryKindMovement, history[1].Kind)

	// Reserved books cannot be sold.
	_, err = SellBook(ctx, database, actor, book.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"status":"available"}`))
	require.NoError(t, err)
	_, err = SellBook(ctx, database, actor, book.ID, "")
	require.NoError(t, err)

	// Sold books keep descriptive edits but reject state changes.
	_, err = UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"location":"C3"}`))
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, err = UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"status":"available"}`))
	assert.ErrorIs(t, err, model.ErrInvalidState)
	updated, err = UpdateBook(ctx, database, actor, book.ID, decodeUpdate(t, `{"category":"Classics"}`))
	require.NoError(t, err)
	assert.Equal(t, "Classics", updated.Category)
}

func TestListBooksFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")

	addBook(t, database, actor, "Dune", "Sci-Fi", "A1")
	addBook(t, database, actor, "Emma", "Classics", "A1")
	b := addBook(t, database, actor, "Foundation", "Sci-Fi", "B2")
	_, err := SellBook(ctx, database, actor, b.ID, "")
	require.NoError(t, err)

	all, err := ListBooks(ctx, database, model.BookFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Dune", all[0].Title)

	scifi, _ := ListBooks(ctx, database, model.BookFilter{Category: "Sci-Fi"})
	assert.Len(t, scifi, 2)

	available, _ := ListBooks(ctx, database, model.BookFilter{Category: "Sci-Fi", Status: model.BookStatusAvailable})
	require.Len(t, available, 1)
	assert.Equal(t, "Dune", available[0].Title)

	atA1, _ := ListBooks(ctx, database, model.BookFilter{Location: "A1"})
	assert.Len(t, atA1, 2)
}

func TestBookImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database, "ana")
	book := addBook(t, database, actor, "Dune", "Sci-Fi", "A1")

	require.NoError(t, SetBookImage(ctx, database, book.ID, []byte("fake image data"), "image/jpeg"))

	data, mime, err := GetBookImage(ctx, database, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))
	assert.Equal(t, "image/jpeg", mime)

	got, _ := GetBook(ctx, database, book.ID)
	assert.Equal(t, "image/jpeg", got.ImageMime)

	assert.ErrorIs(t, SetBookImage(ctx, database, 9999, []byte("x"), "image/jpeg"), model.ErrNotFound)
}
