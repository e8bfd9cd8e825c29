// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// sqliteSchema creates the entries table. Times are unix nanoseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	key         TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_accessed ON entries(accessed_at);
`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite cache: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("sqlite cache: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: open: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite cache: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite cache: schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(key string) (Entry, bool, error) {
	var (
		text              string
		created, accessed int64
	)
	err := s.db.QueryRow(
		"SELECT text, created_at, accessed_at FROM entries WHERE key = ?", key,
	).Scan(&text, &created, &accessed)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("sqlite cache: get: %w", err)
	}

	now := s.now()
	if _, err := s.db.Exec("UPDATE entries SET accessed_at = ? WHERE key = ?", now.UnixNano(), key); err != nil {
		return Entry{}, false, fmt.Errorf("sqlite cache: touch: %w", err)
	}

	return Entry{
		Text:       text,
		CreatedAt:  time.Unix(0, created),
		AccessedAt: now,
	}, true, nil
}

func (s *SQLiteStore) Set(key string, entry Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO entries (key, text, created_at, accessed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			text = excluded.text,
			created_at = excluded.created_at,
			accessed_at = excluded.accessed_at`,
		key, entry.Text, entry.CreatedAt.UnixNano(), entry.AccessedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite cache: set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite cache: delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("sqlite cache: clear: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite cache: count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Prune(cutoff time.Time, maxEntries int) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("sqlite cache: begin: %w", err)
	}
	defer tx.Rollback()

	var removed int64
	if !cutoff.IsZero() {
		res, err := tx.Exec("DELETE FROM entries WHERE created_at < ?", cutoff.UnixNano())
		if err != nil {
			return 0, fmt.Errorf("sqlite cache: expire: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if maxEntries > 0 {
		res, err := tx.Exec(`
			DELETE FROM entries WHERE key IN (
				SELECT key FROM entries
				ORDER BY accessed_at DESC, key DESC
				LIMIT -1 OFFSET ?
			)`, maxEntries)
		if err != nil {
			return 0, fmt.Errorf("sqlite cache: evict: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite cache: commit: %w", err)
	}
	return int(removed), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
