// Package test provides store helpers for tests.
package test

import (
	"context"
	"testing"

	"github.com/usenexus/nexus/internal/profile"
	"github.com/usenexus/nexus/store"
	"github.com/usenexus/nexus/store/db"
)

// NewTestingStore creates a store backed by a throwaway SQLite database.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   t.TempDir(),
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("failed to validate profile: %v", err)
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(driver)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
