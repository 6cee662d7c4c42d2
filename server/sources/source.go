// Package sources defines the contract external collaborators (bookmark
// and feed services) fulfill toward the aggregator. Each client
// normalizes its native records into the shared item shape and supplies
// a provisional relevance score when the upstream does its own matching.
package sources

import (
	"context"

	"github.com/usenexus/nexus/store"
)

// ScoredItem pairs a normalized item with the upstream's own relevance
// score. These scores are rank-derived and live on a different scale
// than embedding similarity; the aggregator merges them uncalibrated.
type ScoredItem struct {
	Item  *store.Item
	Score float64
}

// Source is an external collaborator providing its own search and
// listing over one source kind.
type Source interface {
	// Kind returns the source kind this collaborator serves.
	Kind() store.SourceType

	// SearchByText runs the upstream's text search, returning items
	// already ranked by that service's notion of relevance.
	SearchByText(ctx context.Context, query string, limit int) ([]ScoredItem, error)

	// GetRecent returns the most recent items from the upstream.
	GetRecent(ctx context.Context, limit int) ([]*store.Item, error)
}

// RankScore converts a 0-based upstream rank into the provisional
// relevance score attached to externally matched items.
func RankScore(rank int) float64 {
	return 1.0 - 0.1*float64(rank)
}
