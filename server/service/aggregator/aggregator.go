// Package aggregator fans a query out to the local memory store and every
// configured external source, then merges the heterogeneous result
// streams into one ordered list.
//
// Scores from different sources are not calibrated against each other: a
// cosine similarity from the vector store and a rank-derived score from
// an upstream service live on different scales. Merging by raw score is
// a documented limitation of the cross-source ranking.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/usenexus/nexus/server/internal/errors"
	"github.com/usenexus/nexus/internal/observability"
	"github.com/usenexus/nexus/server/service/memory"
	"github.com/usenexus/nexus/server/sources"
	"github.com/usenexus/nexus/store"
)

const (
	// MatchedOnEmbedding marks results ranked by vector similarity.
	MatchedOnEmbedding = "embedding"
	// MatchedOnContent marks results ranked by an upstream service's
	// own text matching.
	MatchedOnContent = "content"

	defaultSearchLimit = 10
	defaultRecentLimit = 20

	// sourceTimeout bounds each external collaborator call
	// independently; a slow source degrades to zero results instead of
	// stalling the whole aggregate call.
	sourceTimeout = 10 * time.Second
)

// Query is a cross-source search request.
type Query struct {
	Query          string             `json:"query"`
	Sources        []store.SourceType `json:"sources,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	IncludeContent bool               `json:"includeContent,omitempty"`
}

// SearchResult pairs an item with its relevance score and how the score
// was derived. Constructed fresh per query, never persisted.
type SearchResult struct {
	Item            *store.Item `json:"item"`
	SimilarityScore float64     `json:"similarityScore"`
	MatchedOn       string      `json:"matchedOn"`
}

// Aggregator merges the memory store and external sources behind one
// query surface.
type Aggregator struct {
	memory  *memory.Service
	sources []sources.Source
	logger  *slog.Logger
}

// New creates an aggregator over the memory service and zero or more
// external sources. Source order fixes tie-breaking in merged results.
func New(memoryService *memory.Service, srcs ...sources.Source) *Aggregator {
	return &Aggregator{
		memory:  memoryService,
		sources: srcs,
		logger:  slog.Default(),
	}
}

// classifySourceErr types a collaborator failure: an exceeded deadline
// is a timeout, everything else is the upstream being unavailable.
func classifySourceErr(kind store.SourceType, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(err)
	}
	return apperrors.UpstreamUnavailable(string(kind), err)
}

// activeSources resolves the requested source set; empty means all.
func activeSources(requested []store.SourceType) map[store.SourceType]bool {
	active := map[store.SourceType]bool{}
	if len(requested) == 0 {
		for _, s := range store.AllSources() {
			active[s] = true
		}
		return active
	}
	for _, s := range requested {
		active[s] = true
	}
	return active
}

// Search fans the query out to every requested source concurrently,
// waits for all of them, and merges by score descending. A failed or
// timed-out source contributes zero results; the call fails only when
// every dispatched source failed.
func (a *Aggregator) Search(ctx context.Context, query *Query) ([]*SearchResult, error) {
	if strings.TrimSpace(query.Query) == "" {
		return nil, apperrors.InvalidArgument("search query is empty")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	logger, _ := observability.RequestLogger(a.logger)
	start := time.Now()
	active := activeSources(query.Sources)

	// One result slot per dispatched fetch keeps merge order
	// independent of goroutine completion order.
	type slot struct {
		results []*SearchResult
		err     error
	}
	var slots []*slot
	var g errgroup.Group

	for _, src := range a.sources {
		src := src
		if !active[src.Kind()] {
			continue
		}
		s := &slot{}
		slots = append(slots, s)
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, sourceTimeout)
			defer cancel()

			scored, err := src.SearchByText(fetchCtx, query.Query, limit)
			if err != nil {
				s.err = classifySourceErr(src.Kind(), err)
				logger.Warn("source search failed",
					observability.LogFieldSource, string(src.Kind()),
					observability.LogFieldErrorCode, string(apperrors.CodeOf(s.err)),
					"error", err)
				return nil
			}
			for _, r := range scored {
				s.results = append(s.results, &SearchResult{
					Item:            r.Item,
					SimilarityScore: r.Score,
					MatchedOn:       MatchedOnContent,
				})
			}
			return nil
		})
	}

	if active[store.SourceMemory] {
		s := &slot{}
		slots = append(slots, s)
		g.Go(func() error {
			scored, err := a.memory.Search(ctx, query.Query, limit)
			if err != nil {
				s.err = err
				logger.Warn("memory search failed", "error", err)
				return nil
			}
			for _, r := range scored {
				s.results = append(s.results, &SearchResult{
					Item:            r.Item,
					SimilarityScore: r.Score,
					MatchedOn:       MatchedOnEmbedding,
				})
			}
			return nil
		})
	}

	_ = g.Wait()

	merged := []*SearchResult{}
	failures := 0
	for _, s := range slots {
		if s.err != nil {
			failures++
			continue
		}
		merged = append(merged, s.results...)
	}
	if len(slots) > 0 && failures == len(slots) {
		return nil, apperrors.UpstreamUnavailable("all", slots[0].err)
	}

	// Stable sort keeps arrival order on ties.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SimilarityScore > merged[j].SimilarityScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	if !query.IncludeContent {
		merged = stripContent(merged)
	}

	logger.Info("search merged",
		"results", len(merged),
		"failed_sources", failures,
		observability.DurationAttr(start))
	return merged, nil
}

// GetRecent fetches up to limit/3 recent items from each configured
// source concurrently and merges by creation time descending. The even
// three-way split is fixed rather than adaptive to the number of active
// sources.
func (a *Aggregator) GetRecent(ctx context.Context, limit int) ([]*store.Item, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	perSource := limit / 3
	if perSource < 1 {
		perSource = 1
	}

	type slot struct {
		items []*store.Item
		err   error
	}
	slots := make([]*slot, len(a.sources)+1)
	for i := range slots {
		slots[i] = &slot{}
	}

	var g errgroup.Group
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, sourceTimeout)
			defer cancel()

			items, err := src.GetRecent(fetchCtx, perSource)
			if err != nil {
				slots[i].err = classifySourceErr(src.Kind(), err)
				a.logger.Warn("source recent fetch failed",
					observability.LogFieldSource, string(src.Kind()),
					observability.LogFieldErrorCode, string(apperrors.CodeOf(slots[i].err)),
					"error", err)
				return nil
			}
			slots[i].items = items
			return nil
		})
	}
	memorySlot := slots[len(a.sources)]
	g.Go(func() error {
		items, err := a.memory.GetRecent(ctx, perSource)
		if err != nil {
			memorySlot.err = err
			a.logger.Warn("memory recent fetch failed", "error", err)
			return nil
		}
		memorySlot.items = items
		return nil
	})
	_ = g.Wait()

	merged := []*store.Item{}
	failures := 0
	var firstErr error
	for _, s := range slots {
		if s.err != nil {
			failures++
			if firstErr == nil {
				firstErr = s.err
			}
			continue
		}
		merged = append(merged, s.items...)
	}
	if failures == len(slots) {
		return nil, firstErr
	}

	// Missing timestamps sort as the oldest possible value.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAtOrZero().After(merged[j].CreatedAtOrZero())
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Remember stores a new memory entry. Fails hard only on persistence
// failure.
func (a *Aggregator) Remember(ctx context.Context, entry *memory.Entry) (*store.Item, error) {
	return a.memory.Remember(ctx, entry)
}

// stripContent re-packages results without the full content payload.
// Stored items are never mutated.
func stripContent(results []*SearchResult) []*SearchResult {
	stripped := make([]*SearchResult, len(results))
	for i, r := range results {
		if r.Item == nil || r.Item.Content == "" {
			stripped[i] = r
			continue
		}
		item := *r.Item
		item.Content = ""
		stripped[i] = &SearchResult{
			Item:            &item,
			SimilarityScore: r.SimilarityScore,
			MatchedOn:       r.MatchedOn,
		}
	}
	return stripped
}
