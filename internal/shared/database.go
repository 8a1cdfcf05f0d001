package shared

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDatabase is the database path for a throwaway in-memory store.
const MemoryDatabase = ":memory:"

const sqliteOptions = "_busy_timeout=5000&_journal_mode=WAL"

// OpenDatabase opens the SQLite store described by c and verifies the connection.
//
// A file database gets its parent directory created and a busy timeout so the
// CLI and TUI can share it. An in-memory database is pinned to a single
// connection: each pooled connection to ":memory:" is its own empty database.
func OpenDatabase(c DatabaseConfig) (*sql.DB, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	}

	dsn := c.Path
	maxOpen, maxIdle := c.MaxOpenConns, c.MaxIdleConns
	if c.Path == MemoryDatabase {
		maxOpen, maxIdle = 1, 1
	} else {
		if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrLocalIO, err)
		}
		dsn = c.Path + "?" + sqliteOptions
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", c.Path, err)
	}
	return db, nil
}
