// Package localstore provides a small named key -> JSON value store backed
// by a single SQLite file. It stands in for a browser's localStorage: read
// at startup, fully overwritten on every change.
package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Store is a key-value store over a single SQLite file.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the store at path. The parent directory
// is created with 0700 perms.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("localstore: path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("localstore: create dir: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: connect: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key. The second return is false when
// the key is absent.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM kv WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("localstore: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("localstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localstore: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
