// Package history records observed track transitions in a SQLite database so
// the control surface can answer "what played recently" across restarts.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Entry is one recorded playback
type Entry struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album"`
	Source   string    `json:"source"` // backend mode the track was observed on
	PlayedAt time.Time `json:"played_at"`
}

// Store wraps the SQLite connection. Safe for concurrent use; the underlying
// *sql.DB is concurrency-safe.
type Store struct {
	conn   *sql.DB
	logger *logrus.Entry

	insertStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Open opens (or creates) the history database at the given path
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// One writer (the poll listener), occasional readers.
	conn.SetMaxOpenConns(2)

	log := logger.WithField("component", "history")
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			log.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS plays (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		source TEXT NOT NULL,
		played_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at DESC);`

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	store := &Store{conn: conn, logger: log}

	store.insertStmt, err = conn.Prepare(
		"INSERT INTO plays (id, title, artist, album, source, played_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	store.recentStmt, err = conn.Prepare(
		"SELECT id, title, artist, album, source, played_at FROM plays ORDER BY played_at DESC LIMIT ?")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare select: %w", err)
	}

	log.WithField("path", path).Info("History database opened")
	return store, nil
}

// Record inserts one playback row
func (s *Store) Record(title, artist, album, source string) error {
	_, err := s.insertStmt.Exec(uuid.New().String(), title, artist, album, source, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.recentStmt.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Artist, &e.Album, &e.Source, &e.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database connection
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.recentStmt != nil {
		s.recentStmt.Close()
	}
	return s.conn.Close()
}
