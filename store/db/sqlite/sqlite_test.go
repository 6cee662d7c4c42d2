package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usenexus/nexus/internal/profile"
)

func TestDSNWithPragmas(t *testing.T) {
	assert.Equal(t,
		"/data/nexus_dev.db?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)",
		dsnWithPragmas("/data/nexus_dev.db"))

	// A DSN carrying its own query string must extend it, not start a
	// second one.
	assert.Equal(t,
		"file:nexus.db?mode=rwc&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)",
		dsnWithPragmas("file:nexus.db?mode=rwc"))
}

func TestNewDBWithQueryStringDSN(t *testing.T) {
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   t.TempDir(),
	}
	require.NoError(t, p.Validate())
	p.DSN = "file:" + p.DSN + "?mode=rwc"

	driver, err := NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Close())
}
