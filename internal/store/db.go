// Package store persists the last known spot price observations to SQLite
// so a restarted process can serve data before its first live scrape
// completes. It holds one row per (region, SKU), last writer wins; it is
// not a time-series store.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// RawDB returns the underlying *sql.DB.
func (d *DB) RawDB() *sql.DB {
	return d.db
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Open creates the directory, opens the SQLite database, sets WAL mode and
// pragmas, and ensures the schema exists.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// In WAL mode SQLite supports concurrent readers with a single writer.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{db: sqlDB}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			region TEXT NOT NULL,
			sku TEXT NOT NULL,
			gpu_name TEXT NOT NULL,
			gpu_count INTEGER NOT NULL,
			vcpus INTEGER NOT NULL,
			ram_gb INTEGER NOT NULL,
			spot_price_usd_hr REAL NOT NULL,
			ondemand_price_usd_hr REAL NOT NULL,
			savings_pct REAL NOT NULL,
			availability TEXT NOT NULL,
			tier TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (region, sku)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_snapshots_updated ON price_snapshots(region, updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}
	return nil
}
