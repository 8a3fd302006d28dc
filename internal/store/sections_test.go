package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
)

func TestCreateAndListSections(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	s, err := CreateSection(ctx, database, model.Section{Code: " POEM-F1 ", Name: "Poetry - Shelf F1", Capacity: 40})
	require.NoError(t, err)
	assert.Equal(t, "POEM-F1", s.Code)
	assert.Equal(t, 40, s.Capacity)

	_, err = CreateSection(ctx, database, model.Section{Code: "POEM-F1", Name: "Again"})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	_, err = CreateSection(ctx, database, model.Section{Code: "", Name: ""})
	assert.ErrorIs(t, err, model.ErrValidation)

	missing, err := GetSection(ctx, database, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	sections, err := ListSections(ctx, database)
	require.NoError(t, err)
	assert.Len(t, sections, 1)
}

func TestSeedDefaultSections(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n, err := SeedDefaultSections(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultSections), n)

	// Seeding again is a no-op.
	n, err = SeedDefaultSections(ctx, database)
	require.NoError(t, err)
	assert.Zero(t, n)

	sections, err := ListSections(ctx, database)
	require.NoError(t, err)
	require.Len(t, sections, len(model.DefaultSections))
	assert.Equal(t, "ACAD-E1", sections[0].Code)
}

func TestDeleteSection(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ana := newActor(t, database, "ana")

	_, err := CreateSection(ctx, database, model.Section{Code: "A1", Name: "Shelf A1"})
	require.NoError(t, err)
	book := addBook(t, database, ana, "Dune", "Sci-Fi", "A1")

	assert.ErrorIs(t, DeleteSection(ctx, database, "A1"), model.ErrInvalidState)

	_, err = SellBook(ctx, database, ana, book.ID, "")
	require.NoError(t, err)
	require.NoError(t, DeleteSection(ctx, database, "A1"))

	assert.ErrorIs(t, DeleteSection(ctx, database, "A1"), model.ErrNotFound)

	// Sales from a deleted section still show up in aggregates.
	counts, err := AggregateByLocation(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["A1"].Sold)
}
