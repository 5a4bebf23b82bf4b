// Package store persists finalized datasets in SQLite, with optional FTS5
// full-text search over entity titles and bodies.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	type       TEXT NOT NULL,
	id         TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	team       TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	record     TEXT NOT NULL,
	PRIMARY KEY (type, id)
);

CREATE INDEX IF NOT EXISTS idx_entities_team ON entities(team);

CREATE TABLE IF NOT EXISTS edges (
	edge_id   TEXT PRIMARY KEY,
	seq       INTEGER NOT NULL,
	edge_type TEXT NOT NULL,
	src       TEXT NOT NULL,
	dst       TEXT NOT NULL,
	weight    REAL NOT NULL,
	edge      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);

CREATE TABLE IF NOT EXISTS overlaps (
	overlap_id TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	team_a     TEXT NOT NULL,
	team_b     TEXT NOT NULL,
	topic      TEXT NOT NULL,
	confidence REAL NOT NULL,
	overlap    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store defines the read and write operations over a persisted dataset.
// Consumers depend on this interface rather than on *DB.
type Store interface {
	Save(ds *dataset.Dataset, rep pipeline.Report) error
	Checksum() (string, error)
	Report() (*pipeline.Report, error)
	Entity(ref models.Ref) (*models.Record, error)
	ListEntities(q EntityQuery) ([]EntityRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Edges(q EdgeQuery) ([]models.Edge, int, error)
	Overlaps(team string) ([]models.Overlap, error)
	Counts() (map[models.EntityType]int, error)
	Dataset() (*dataset.Dataset, error)
	Close() error
}

var _ Store = (*DB)(nil)

// DB wraps a sql.DB with dataset operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
