package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SQLite stores values in a settings table.
type SQLite struct {
	db   *sql.DB
	path string

	stmtRead  *sql.Stmt
	stmtWrite *sql.Stmt
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000", // CLI and daemon may share the file
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	s := &SQLite{db: db, path: path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	log.Debug().Str("path", path).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)",
		fmt.Sprint(schemaVersion),
	)
	return err
}

func (s *SQLite) prepareStatements() error {
	var err error
	s.stmtRead, err = s.db.Prepare("SELECT value FROM settings WHERE key = ?")
	if err != nil {
		return err
	}
	s.stmtWrite, err = s.db.Prepare(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	return err
}

// Read returns the value for key.
func (s *SQLite) Read(key string) (string, bool, error) {
	var value string
	err := s.stmtRead.QueryRow(key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return value, true, nil
}

// Write sets the value for key. Each write is its own transaction.
func (s *SQLite) Write(key, value string) error {
	if _, err := s.stmtWrite.Exec(key, value); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// Flush checkpoints the WAL into the main database file.
func (s *SQLite) Flush() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.stmtRead != nil {
		s.stmtRead.Close()
	}
	if s.stmtWrite != nil {
		s.stmtWrite.Close()
	}
	return s.db.Close()
}

var _ ports.Store = (*SQLite)(nil)
