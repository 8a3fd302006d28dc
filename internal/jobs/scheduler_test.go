package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjigarna/internal/db"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

func TestNewRegistersJobs(t *testing.T) {
	database := db.NewTestDB(t)

	s, err := New(database, Config{RestockSchedule: "0 7 * * *", PurgeSchedule: "@hourly"})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
	assert.Equal(t, model.DefaultRestockThreshold, s.cfg.RestockThreshold)

	s, err = New(database, Config{PurgeSchedule: "@daily"})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	database := db.NewTestDB(t)
	_, err := New(database, Config{RestockSchedule: "whenever"})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	database := db.NewTestDB(t)
	s, err := New(database, Config{PurgeSchedule: "@hourly"})
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestCheckRestock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, database, "ana", "ana@knjigarna.si", "hash", model.RoleEmployee)
	require.NoError(t, err)
	loc := "A1"
	_, err = store.AddBook(ctx, database, u.ID, model.NewBook{Title: "Dune", Author: "Herbert", Location: &loc})
	require.NoError(t, err)

	s, err := New(database, Config{RestockThreshold: 5})
	require.NoError(t, err)
	assert.NoError(t, s.CheckRestock(ctx))
}

func TestPurgeTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.RevokeToken(ctx, database, "old", time.Now().Add(-time.Hour)))
	require.NoError(t, store.RevokeToken(ctx, database, "fresh", time.Now().Add(time.Hour)))

	s, err := New(database, Config{})
	require.NoError(t, err)
	require.NoError(t, s.PurgeTokens(ctx))

	revoked, err := store.IsTokenRevoked(ctx, database, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsTokenRevoked(ctx, database, "fresh")
	require.NoError(t, err)
	assert.True(t, revoked)
}
