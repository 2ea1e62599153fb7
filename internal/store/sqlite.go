package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/feastline/concierge/internal/logging"
)

// SQLiteKV is a KV driver backed by a single-table SQLite database.
type SQLiteKV struct {
	sql *sql.DB
	log *logging.Logger
}

// OpenSQLiteKV opens (or creates) a SQLite database at the given path.
// Use ":memory:" for an in-memory database (useful for tests).
func OpenSQLiteKV(path string, log *logging.Logger) (*SQLiteKV, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	kv := &SQLiteKV{sql: sqlDB, log: log.Sub("store")}
	kv.log.Info().Str("path", path).Msg("kv store opened")
	return kv, nil
}

func (s *SQLiteKV) Get(key string) (string, bool) {
	var value string
	err := s.sql.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Warn().Err(err).Str("key", key).Msg("kv read failed")
		}
		return "", false
	}
	return value, true
}

func (s *SQLiteKV) Set(key, value string) {
	_, err := s.sql.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("kv write failed")
	}
}

func (s *SQLiteKV) Remove(key string) {
	if _, err := s.sql.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("kv delete failed")
	}
}

// Close closes the database connection.
func (s *SQLiteKV) Close() error {
	return s.sql.Close()
}
