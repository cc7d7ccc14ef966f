// Package testutil holds helpers shared by package tests
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/database"
)

// SetupTestDB opens a migrated SQLite index in a temporary directory that is
// removed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.db")
	db, err := database.Open(context.Background(), path)
	require.NoError(t, err, "Failed to open test database")

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Error closing test database: %v", err)
		}
	})
	return db
}

// Logger returns a zerolog logger writing through t.Log
func Logger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}
