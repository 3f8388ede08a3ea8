// Package sqlite provides the SQLite-backed tick journal for RoboOS.
// By default the database lives in memory, so history never outlives the
// process; a file path may be configured for debugging.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with migrations.
type DB struct {
	db        *sql.DB
	retention int
}

// Open creates or opens the journal. An empty path opens a private
// in-memory database. retention caps the number of tick rows kept
// (0 keeps everything).
func Open(path string, retention int) (*DB, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: SQLite is single-writer, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{db: db, retention: retention}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			session_id      TEXT NOT NULL,
			tick            INTEGER NOT NULL,
			generation      INTEGER NOT NULL,
			open_channels   INTEGER NOT NULL,
			stealth_volume  REAL NOT NULL,
			tasks_settled   INTEGER NOT NULL,
			zk_success      REAL NOT NULL,
			faults          INTEGER NOT NULL DEFAULT 0,
			recorded_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_session ON ticks(session_id)`,

		`CREATE TABLE IF NOT EXISTS transitions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			tick_id     TEXT NOT NULL,
			task_id     TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_tick ON transitions(tick_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_task ON transitions(task_id)`,

		`CREATE TABLE IF NOT EXISTS session_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL,
			kind        TEXT NOT NULL,
			network     TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
