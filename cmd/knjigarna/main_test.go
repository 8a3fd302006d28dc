package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjigarna/internal/auth"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

func TestLevelRouter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(newLevelRouter(&stdout, &stderr, slog.LevelInfo, "text"))

	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	logger.With("component", "test").Error("broken")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "shown")
	assert.NotContains(t, stdout.String(), "broken")
	assert.Contains(t, stderr.String(), "broken")
	assert.Contains(t, stderr.String(), "component=test")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, parseLevel("whatever"))
}

func TestBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knjigarna.sqlite3")
	database, err := openDatabase(path)
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	password, err := bootstrap(ctx, database, "boss", "boss@knjigarna.si")
	require.NoError(t, err)

	user, err := store.GetUserByUsername(ctx, database, "boss")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.True(t, auth.VerifyPassword(user.PasswordHash, password))

	sections, err := store.ListSections(ctx, database)
	require.NoError(t, err)
	assert.Len(t, sections, len(model.DefaultSections))

	_, err = bootstrap(ctx, database, "boss", "boss@knjigarna.si")
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestPrintRecommendations(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRecommendations(&out, 10, nil))
	assert.Contains(t, out.String(), "at least 10")

	out.Reset()
	require.NoError(t, printRecommendations(&out, 10, []model.RestockRecommendation{
		{Location: "A1", AvailableCount: 2, Severity: model.SeverityCritical, TopCategories: []string{"Sci-Fi", "Poetry"}},
		{Location: "B2", AvailableCount: 7, Severity: model.SeverityLow, TopCategories: []string{}},
	}))
	assert.Contains(t, out.String(), "Sci-Fi, Poetry")
	assert.Contains(t, out.String(), "critical")
	assert.Contains(t, out.String(), "-")
}
