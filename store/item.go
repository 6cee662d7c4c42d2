package store

import (
	"time"
)

// SourceType identifies the origin of an item.
type SourceType string

const (
	SourceBookmark SourceType = "bookmark"
	SourceFeed     SourceType = "feed"
	SourceMemory   SourceType = "memory"
)

// AllSources lists every known source kind in a fixed order.
func AllSources() []SourceType {
	return []SourceType{SourceBookmark, SourceFeed, SourceMemory}
}

// Valid reports whether s is a known source kind.
func (s SourceType) Valid() bool {
	switch s {
	case SourceBookmark, SourceFeed, SourceMemory:
		return true
	}
	return false
}

// Item is the unified representation of anything retrievable: a bookmark,
// a feed entry, or a memory note. IDs are prefixed per source (bk_, feed_,
// mem_) so they never collide across sources.
type Item struct {
	ID      string     `json:"id"`
	Source  SourceType `json:"source"`
	Title   string     `json:"title,omitempty"`
	URL     string     `json:"url,omitempty"`
	Content string     `json:"content,omitempty"`
	Summary string     `json:"summary,omitempty"`
	Tags    []string   `json:"tags,omitempty"`
	// CreatedAt is nil when the source did not report a timestamp;
	// recency ordering treats nil as the oldest possible value.
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// ItemWithScore pairs an item with its similarity score from a vector
// search. Scores from cosine similarity fall in [-1, 1].
type ItemWithScore struct {
	Item  *Item
	Score float64
}

// CreatedAtOrZero returns the creation time, or the zero time when the
// item has none, so recency sorts place timestamp-less items last.
func (i *Item) CreatedAtOrZero() time.Time {
	if i.CreatedAt == nil {
		return time.Time{}
	}
	return *i.CreatedAt
}
