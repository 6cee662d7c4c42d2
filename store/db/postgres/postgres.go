// Package postgres implements the store driver on PostgreSQL with the
// pgvector extension. Similarity search runs as an exact sequential
// scan ordered by cosine distance; no approximate index is created, so
// ranking matches the in-process linear scan of the SQLite driver.
package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/usenexus/nexus/internal/profile"
	"github.com/usenexus/nexus/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the PostgreSQL database at profile.DSN and applies the
// schema. The embedding column dimension follows the configured model.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := &DB{db: pgDB, profile: profile}
	if err := driver.migrate(); err != nil {
		return nil, errors.Wrap(err, "failed to migrate db")
	}

	slog.Info("postgres database opened")
	return driver, nil
}

func (d *DB) migrate() error {
	dimensions := d.profile.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = 384
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT 'memory',
			title TEXT,
			url TEXT,
			content TEXT,
			summary TEXT,
			tags JSONB,
			created_ts BIGINT,
			metadata JSONB,
			embedding vector(%d)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_memories_created_ts ON memories (created_ts)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %q", stmt)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
