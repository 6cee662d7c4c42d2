// Package sqlite implements the store driver on an embedded SQLite
// database. Embeddings are stored as little-endian float32 blobs and
// similarity search is an exhaustive in-process scan, which is the
// accepted O(n·D) cost at personal-archive scale.
package sqlite

import (
	"database/sql"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/usenexus/nexus/internal/profile"
	"github.com/usenexus/nexus/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at profile.DSN and applies the schema.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", dsnWithPragmas(profile.DSN))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := &DB{db: sqliteDB, profile: profile}
	if err := driver.migrate(); err != nil {
		return nil, errors.Wrap(err, "failed to migrate db")
	}

	slog.Info("sqlite database opened", "dsn", profile.DSN)
	return driver, nil
}

// dsnWithPragmas appends the connection pragmas, respecting a query
// string already present in the DSN. WAL allows concurrent readers
// while a writer holds the lock; busy_timeout retries briefly instead
// of failing on contention.
func dsnWithPragmas(dsn string) string {
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
}

func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT 'memory',
			title TEXT,
			url TEXT,
			content TEXT,
			summary TEXT,
			tags TEXT,
			created_ts INTEGER,
			metadata TEXT,
			embedding BLOB
		)`,
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
