// Package metacache persists probe metadata across runs so repeated
// resolutions of the same channel do not re-probe every entry.
package metacache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one cached probe result keyed by canonical URL.
type Entry struct {
	URL        string
	Title      string
	Uploader   string
	UploadedAt int64
	FetchedAt  time.Time
}

// Store is a SQLite-backed probe-metadata cache.
type Store struct {
	db     *sql.DB
	maxAge time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS probe_cache (
    url         TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    uploader    TEXT NOT NULL DEFAULT '',
    uploaded_at INTEGER NOT NULL DEFAULT 0,
    fetched_at  TEXT NOT NULL
);
`

// Open initializes or connects to the cache database. Entries older than
// maxAge are treated as absent on read.
func Open(path string, maxAge time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &Store{db: db, maxAge: maxAge}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached entry for the URL if present and fresh.
func (s *Store) Get(ctx context.Context, url string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, title, uploader, uploaded_at, fetched_at FROM probe_cache WHERE url = ?`, url)

	var entry Entry
	var fetchedAt string
	err := row.Scan(&entry.URL, &entry.Title, &entry.Uploader, &entry.UploadedAt, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	entry.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, nil
	}
	if time.Since(entry.FetchedAt) > s.maxAge {
		return nil, nil
	}
	return &entry, nil
}

// Put inserts or replaces the cached entry for a URL.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO probe_cache (url, title, uploader, uploaded_at, fetched_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(url) DO UPDATE SET
             title = excluded.title,
             uploader = excluded.uploader,
             uploaded_at = excluded.uploaded_at,
             fetched_at = excluded.fetched_at`,
		entry.URL,
		entry.Title,
		entry.Uploader,
		entry.UploadedAt,
		entry.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Prune removes entries older than the freshness window.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.maxAge).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM probe_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}
