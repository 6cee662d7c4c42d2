// Package memory implements the local semantic memory store: embedding
// generation on write, exhaustive cosine-similarity search on read, and
// recency listing.
package memory

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/lithammer/shortuuid/v4"

	"github.com/usenexus/nexus/plugin/markdown"
	"github.com/usenexus/nexus/server/ai"
	apperrors "github.com/usenexus/nexus/server/internal/errors"
	"github.com/usenexus/nexus/store"
)

const (
	defaultSearchLimit = 10
	defaultRecentLimit = 20
)

// Entry is a request to store something in memory.
type Entry struct {
	Content  string         `json:"content"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Service owns persisted items and their embeddings.
type Service struct {
	store    *store.Store
	embedder ai.Embedder
	markdown markdown.Service
}

// NewService creates a memory service.
func NewService(s *store.Store, embedder ai.Embedder) *Service {
	return &Service{
		store:    s,
		embedder: embedder,
		markdown: markdown.NewService(),
	}
}

// Store persists the item. When the item carries embeddable text the
// embedding is computed and stored with the row; otherwise the row is
// persisted without a vector, so it stays retrievable by recency but is
// excluded from similarity search. An embedding provider failure
// degrades the same way instead of failing the write.
func (s *Service) Store(ctx context.Context, item *store.Item) (*store.Item, error) {
	embedText := s.embedText(item)
	if embedText != "" {
		vector, err := s.embedder.Embed(ctx, embedText)
		if err != nil {
			slog.Warn("failed to embed item, storing without vector",
				"item_id", item.ID, "error", err)
			item.Embedding = nil
		} else {
			item.Embedding = vector
		}
	} else {
		item.Embedding = nil
	}

	stored, err := s.store.UpsertItem(ctx, item)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return stored, nil
}

// Search embeds the query once and ranks every embedded item by cosine
// similarity, descending. The scan is exhaustive; at personal-archive
// scale the O(n·D) cost is the accepted bound.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*store.ItemWithScore, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidArgument("search query is empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.EmbeddingFailed("failed to embed query", err)
	}

	results, err := s.store.VectorSearch(ctx, queryVector, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return results, nil
}

// GetRecent returns up to limit items ordered by creation time
// descending. Items stored without an embedding are included.
func (s *Service) GetRecent(ctx context.Context, limit int) ([]*store.Item, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	items, err := s.store.ListRecentItems(ctx, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return items, nil
}

// Remember synthesizes a memory item from the entry and persists it.
func (s *Service) Remember(ctx context.Context, entry *Entry) (*store.Item, error) {
	if strings.TrimSpace(entry.Content) == "" {
		return nil, apperrors.InvalidArgument("memory content is empty")
	}

	now := time.Now().UTC()
	item := &store.Item{
		ID:        "mem_" + shortuuid.New(),
		Source:    store.SourceMemory,
		Content:   entry.Content,
		Tags:      entry.Tags,
		Metadata:  entry.Metadata,
		CreatedAt: &now,
	}
	return s.Store(ctx, item)
}

// EmbedPending embeds up to limit items that were persisted without a
// vector, typically after a provider outage. Items with no embeddable
// text are left alone. Returns the number of items embedded.
func (s *Service) EmbedPending(ctx context.Context, limit int) (int, error) {
	items, err := s.store.ListItemsWithoutEmbedding(ctx, limit)
	if err != nil {
		return 0, apperrors.StoreUnavailable(err)
	}

	embedded := 0
	for _, item := range items {
		select {
		case <-ctx.Done():
			return embedded, ctx.Err()
		default:
		}

		embedText := s.embedText(item)
		if embedText == "" {
			continue
		}
		vector, err := s.embedder.Embed(ctx, embedText)
		if err != nil {
			slog.Warn("backfill embedding failed", "item_id", item.ID, "error", err)
			continue
		}
		item.Embedding = vector
		if _, err := s.store.UpsertItem(ctx, item); err != nil {
			return embedded, apperrors.StoreUnavailable(err)
		}
		embedded++
	}
	return embedded, nil
}

// embedText derives the text to embed: content, falling back to title,
// falling back to summary, with markdown syntax stripped.
func (s *Service) embedText(item *store.Item) string {
	for _, candidate := range []string{item.Content, item.Title, item.Summary} {
		if text := strings.TrimSpace(s.markdown.PlainText(candidate)); text != "" {
			return text
		}
	}
	return ""
}
