// Package store persists window transcripts in SQLite so repeated runs over
// the same media skip decoding.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	media_key TEXT NOT NULL,
	window    INTEGER NOT NULL,
	model     TEXT NOT NULL,
	text      TEXT NOT NULL,
	created   INTEGER NOT NULL,
	PRIMARY KEY (media_key, window, model)
);
`

// Store is a SQLite-backed transcript cache
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Lookup returns the cached transcript for a window, reporting whether one
// exists.
func (s *Store) Lookup(mediaKey string, window int, model string) (string, bool, error) {
	var text string
	err := s.db.QueryRow(
		`SELECT text FROM transcripts WHERE media_key = ? AND window = ? AND model = ?`,
		mediaKey, window, model).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store lookup: %w", err)
	}
	return text, true, nil
}

// Save stores a window transcript, replacing any previous entry
func (s *Store) Save(mediaKey string, window int, model string, text string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO transcripts (media_key, window, model, text, created) VALUES (?, ?, ?, ?, ?)`,
		mediaKey, window, model, text, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store save: %w", err)
	}
	return nil
}

// Purge removes every transcript for a media key
func (s *Store) Purge(mediaKey string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM transcripts WHERE media_key = ?`, mediaKey)
	if err != nil {
		return 0, fmt.Errorf("store purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
