// Package index provides a SQLite-backed manuscript index with optional FTS5
// full-text scene search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	path       TEXT PRIMARY KEY,
	format     TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	author     TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	chapters   INTEGER NOT NULL DEFAULT 0,
	scenes     INTEGER NOT NULL DEFAULT 0,
	words      INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scenes (
	project  TEXT NOT NULL REFERENCES projects(path) ON DELETE CASCADE,
	scene_id TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	chapter  TEXT NOT NULL DEFAULT '',
	title    TEXT NOT NULL DEFAULT '',
	status   TEXT NOT NULL DEFAULT '',
	words    INTEGER NOT NULL DEFAULT 0,
	tags     TEXT NOT NULL DEFAULT '[]',
	body     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project, scene_id)
);

CREATE TABLE IF NOT EXISTS conversions (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	target      TEXT NOT NULL DEFAULT '',
	direction   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created     INTEGER NOT NULL DEFAULT 0,
	scenes      INTEGER NOT NULL DEFAULT 0,
	words       INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_scenes_project ON scenes(project, position);
CREATE INDEX IF NOT EXISTS idx_conversions_started ON conversions(started_at);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
