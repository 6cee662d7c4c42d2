package store

import (
	"context"
)

// Store provides database access to persisted items. It owns the single
// shared driver handle for the process lifetime; drivers serialize
// upserts per row while allowing concurrent reads.
type Store struct {
	driver Driver
}

// New creates a new Store on top of a driver.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) UpsertItem(ctx context.Context, item *Item) (*Item, error) {
	return s.driver.UpsertItem(ctx, item)
}

func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.driver.GetItem(ctx, id)
}

func (s *Store) ListRecentItems(ctx context.Context, limit int) ([]*Item, error) {
	return s.driver.ListRecentItems(ctx, limit)
}

func (s *Store) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]*ItemWithScore, error) {
	return s.driver.VectorSearch(ctx, queryVector, limit)
}

func (s *Store) ListItemsWithoutEmbedding(ctx context.Context, limit int) ([]*Item, error) {
	return s.driver.ListItemsWithoutEmbedding(ctx, limit)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.driver.DeleteItem(ctx, id)
}
