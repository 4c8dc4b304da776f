// Package db opens the breakup-report sqlite database and manages its
// schema migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection used by all stores.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies pragmas
// suitable for a write-heavy batch job.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// Serialize access: modernc sqlite allows one writer, and the
	// pipeline writes rasters in bulk from a single goroutine anyway.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return &DB{sqlDB}, nil
}
