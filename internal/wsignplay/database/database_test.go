package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "cache.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_entries`).Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, db.Close())

	// Reopening must not reapply anything
	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	insert := func(tx *Tx, key string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media_entries (key, url, path, content_type, size, stored_at)
			VALUES (?, ?, ?, '', 0, CURRENT_TIMESTAMP)`, key, "https://x/"+key, "/tmp/"+key)
		return err
	}

	boom := errors.New("boom")
	err = RunInTx(ctx, db, nil, func(tx *Tx) error {
		require.NoError(t, insert(tx, "rolled-back"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, RunInTx(ctx, db, nil, func(tx *Tx) error {
		return insert(tx, "kept")
	}))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_entries`).Scan(&count))
	assert.Equal(t, 1, count)

	err = RunInTx(ctx, db, nil, func(tx *Tx) error { return insert(tx, "kept") })
	assert.True(t, werrors.Is(MapError(err, "test"), werrors.ErrConflict))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, MapError(nil, "op"))
	assert.True(t, werrors.IsNotFound(MapError(sql.ErrNoRows, "op")))
	assert.Equal(t, "INTERNAL", werrors.CodeOf(MapError(errors.New("disk I/O"), "op")))
}
