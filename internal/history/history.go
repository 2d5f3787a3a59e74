// Package history records completed deliveries in a local SQLite database.
// It is an audit log only; resolution never reads from it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id          TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	source_url  TEXT NOT NULL,
	content_id  TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	quality     TEXT NOT NULL,
	format      TEXT NOT NULL,
	mode        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS deliveries_created_at ON deliveries (created_at DESC);
`

// Entry is one recorded delivery.
type Entry struct {
	ID        string
	CreatedAt time.Time
	SourceURL string
	ContentID string
	Title     string
	Provider  string
	Kind      string
	Quality   string
	Format    string
	Mode      string // redirect, buffered, streamed or saved
}

// Store is a delivery log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history DB: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts e, filling in ID and CreatedAt when empty, and returns the
// stored entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, created_at, source_url, content_id, title, provider, kind, quality, format, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UnixMilli(), e.SourceURL, e.ContentID, e.Title, e.Provider,
		e.Kind, e.Quality, e.Format, e.Mode,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("recording delivery: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source_url, content_id, title, provider, kind, quality, format, mode
		 FROM deliveries ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &created, &e.SourceURL, &e.ContentID, &e.Title, &e.Provider,
			&e.Kind, &e.Quality, &e.Format, &e.Mode); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
