package store

import (
	"context"
)

// Driver is the low-level persistence interface implemented per database.
type Driver interface {
	// UpsertItem inserts the item or replaces the existing row with the
	// same ID, embedding included.
	UpsertItem(ctx context.Context, item *Item) (*Item, error)

	// GetItem returns the item with the given ID, or nil when absent.
	GetItem(ctx context.Context, id string) (*Item, error)

	// ListRecentItems returns up to limit items ordered by creation
	// time descending. Items without a timestamp sort last. Items
	// without an embedding are included.
	ListRecentItems(ctx context.Context, limit int) ([]*Item, error)

	// VectorSearch returns up to limit embedded items ordered by cosine
	// similarity to the query vector, descending. The scan is exact and
	// exhaustive over every embedded row.
	VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]*ItemWithScore, error)

	// ListItemsWithoutEmbedding returns up to limit items persisted
	// without a vector, for the backfill runner.
	ListItemsWithoutEmbedding(ctx context.Context, limit int) ([]*Item, error)

	// DeleteItem removes the item with the given ID if present.
	DeleteItem(ctx context.Context, id string) error

	Close() error
}
