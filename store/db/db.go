package db

import (
	"github.com/pkg/errors"

	"github.com/usenexus/nexus/internal/profile"
	"github.com/usenexus/nexus/store"
	"github.com/usenexus/nexus/store/db/postgres"
	"github.com/usenexus/nexus/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile. SQLite keeps a
// personal instance self-contained; PostgreSQL with pgvector pushes the
// similarity ordering into the database.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
