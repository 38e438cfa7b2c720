// Package history records which catalog tracks have already been downloaded
// and where they were placed, backing the "exists locally" check.
package history

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"tunegrab/internal/catalog"
)

//go:embed schema.sql
var schema string

// Store is a sqlite-backed download registry. Safe for concurrent use; the
// sql package serializes access to the single connection pool.
type Store struct {
	db *sql.DB
}

// Open creates or opens the registry at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %s: %w", path, err)
	}

	// WAL keeps existence checks from blocking behind concurrent job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record upserts a completed download for the track.
func (s *Store) Record(track catalog.Track, filePath string) error {
	const query = `
	INSERT INTO downloads (track_id, name, artist, album, file_path, downloaded_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(track_id) DO UPDATE SET
		file_path = excluded.file_path,
		downloaded_at = CURRENT_TIMESTAMP;`

	if _, err := s.db.Exec(query, track.ID, track.Name, track.Artist, track.Album, filePath); err != nil {
		return fmt.Errorf("failed to record download %s: %w", track.ID, err)
	}
	return nil
}

// Lookup returns the recorded file path for a track, or "" when the track
// was never downloaded.
func (s *Store) Lookup(trackID string) (string, error) {
	var path string
	err := s.db.QueryRow("SELECT file_path FROM downloads WHERE track_id = ?", trackID).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", trackID, err)
	}
	return path, nil
}

// ExistsLocally reports whether the track was downloaded and its file is
// still on disk. A stale record whose file vanished counts as absent.
func (s *Store) ExistsLocally(trackID string) (bool, error) {
	path, err := s.Lookup(trackID)
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	return true, nil
}
