package mediacache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/database"
)

// Entry records one cached media object
type Entry struct {
	// URL is the remote location the blob was fetched from
	URL string `json:"url"`
	// Key is the hex SHA-256 of URL
	Key string `json:"key"`
	// Path is the blob location relative to the cache directory
	Path        string    `json:"path"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	StoredAt    time.Time `json:"storedAt"`
}

// Key derives the cache key of a URL
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// repository is the SQLite index of cached blobs
type repository struct {
	db *sql.DB
}

func (r *repository) get(ctx context.Context, key string) (*Entry, error) {
	const op = "mediacache.get"

	var e Entry
	err := r.db.QueryRowContext(ctx, `
		SELECT key, url, path, content_type, size, stored_at
		FROM media_entries
		WHERE key = ?`, key).Scan(&e.Key, &e.URL, &e.Path, &e.ContentType, &e.Size, &e.StoredAt)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return &e, nil
}

func (r *repository) put(ctx context.Context, e *Entry) error {
	const op = "mediacache.put"

	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		// A different URL can only collide on key after a hash collision;
		// drop any stale row holding the URL under another key.
		if _, err := tx.ExecContext(ctx, `DELETE FROM media_entries WHERE url = ? AND key <> ?`, e.URL, e.Key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media_entries (key, url, path, content_type, size, stored_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET
				url = excluded.url,
				path = excluded.path,
				content_type = excluded.content_type,
				size = excluded.size,
				stored_at = excluded.stored_at`,
			e.Key, e.URL, e.Path, e.ContentType, e.Size, e.StoredAt)
		return err
	})
	return database.MapError(err, op)
}

func (r *repository) list(ctx context.Context) ([]Entry, error) {
	const op = "mediacache.list"

	rows, err := r.db.QueryContext(ctx, `
		SELECT key, url, path, content_type, size, stored_at
		FROM media_entries
		ORDER BY stored_at, key`)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.URL, &e.Path, &e.ContentType, &e.Size, &e.StoredAt); err != nil {
			return nil, database.MapError(err, op)
		}
		entries = append(entries, e)
	}
	return entries, database.MapError(rows.Err(), op)
}
