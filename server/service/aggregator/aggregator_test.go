package aggregator

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/usenexus/nexus/server/internal/errors"
	"github.com/usenexus/nexus/server/service/memory"
	"github.com/usenexus/nexus/server/sources"
	"github.com/usenexus/nexus/store"
	storetest "github.com/usenexus/nexus/store/test"
)

type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 32)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%32] += 1
	}
	return v, nil
}

func (hashEmbedder) Dimensions() int { return 32 }

// fakeSource is a scripted external collaborator.
type fakeSource struct {
	kind       store.SourceType
	scored     []sources.ScoredItem
	recent     []*store.Item
	failing    bool
	callCount  int
	recentHits int
}

func (f *fakeSource) Kind() store.SourceType { return f.kind }

func (f *fakeSource) SearchByText(_ context.Context, _ string, _ int) ([]sources.ScoredItem, error) {
	f.callCount++
	if f.failing {
		return nil, errors.New("upstream down")
	}
	return f.scored, nil
}

func (f *fakeSource) GetRecent(_ context.Context, limit int) ([]*store.Item, error) {
	f.recentHits = limit
	if f.failing {
		return nil, errors.New("upstream down")
	}
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func newMemoryService(t *testing.T) *memory.Service {
	s := storetest.NewTestingStore(context.Background(), t)
	return memory.NewService(s, hashEmbedder{})
}

func scoredBookmark(id string, score float64) sources.ScoredItem {
	return sources.ScoredItem{
		Item:  &store.Item{ID: id, Source: store.SourceBookmark, Title: id},
		Score: score,
	}
}

func TestSearchMergesAndSortsByScore(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryService(t)
	_, err := mem.Remember(ctx, &memory.Entry{Content: "rust borrow checker design"})
	require.NoError(t, err)

	bookmarks := &fakeSource{
		kind: store.SourceBookmark,
		scored: []sources.ScoredItem{
			scoredBookmark("bk_1", 0.95),
			scoredBookmark("bk_2", 0.2),
		},
	}
	agg := New(mem, bookmarks)

	results, err := agg.Search(ctx, &Query{Query: "rust borrow checker", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Non-increasing scores across the merged list.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].SimilarityScore, results[i].SimilarityScore)
	}

	// matched_on reflects how each score was derived.
	for _, r := range results {
		switch r.Item.Source {
		case store.SourceBookmark:
			assert.Equal(t, MatchedOnContent, r.MatchedOn)
		case store.SourceMemory:
			assert.Equal(t, MatchedOnEmbedding, r.MatchedOn)
		}
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	ctx := context.Background()
	bookmarks := &fakeSource{
		kind: store.SourceBookmark,
		scored: []sources.ScoredItem{
			scoredBookmark("bk_1", 0.9),
			scoredBookmark("bk_2", 0.8),
			scoredBookmark("bk_3", 0.7),
		},
	}
	agg := New(newMemoryService(t), bookmarks)

	results, err := agg.Search(ctx, &Query{Query: "anything", Limit: 2, Sources: []store.SourceType{store.SourceBookmark}})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "bk_1", results[0].Item.ID)
}

func TestSearchHonorsSourceSubset(t *testing.T) {
	ctx := context.Background()
	bookmarks := &fakeSource{kind: store.SourceBookmark, scored: []sources.ScoredItem{scoredBookmark("bk_1", 0.9)}}
	agg := New(newMemoryService(t), bookmarks)

	_, err := agg.Search(ctx, &Query{Query: "x", Sources: []store.SourceType{store.SourceMemory}})
	require.NoError(t, err)
	assert.Zero(t, bookmarks.callCount, "bookmark source must not be queried")
}

func TestSearchPartialFailureStillReturnsResults(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryService(t)
	_, err := mem.Remember(ctx, &memory.Entry{Content: "kubernetes operator notes"})
	require.NoError(t, err)

	agg := New(mem, &fakeSource{kind: store.SourceBookmark, failing: true})

	results, err := agg.Search(ctx, &Query{Query: "kubernetes operator", Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSearchAllSourcesFailing(t *testing.T) {
	ctx := context.Background()
	agg := New(newMemoryService(t), &fakeSource{kind: store.SourceBookmark, failing: true})

	_, err := agg.Search(ctx, &Query{Query: "x", Sources: []store.SourceType{store.SourceBookmark}})
	assert.Error(t, err)
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	agg := New(newMemoryService(t))
	_, err := agg.Search(context.Background(), &Query{Query: "  "})
	assert.Error(t, err)
}

func TestSearchStripsContentByDefault(t *testing.T) {
	ctx := context.Background()
	bookmarks := &fakeSource{
		kind: store.SourceBookmark,
		scored: []sources.ScoredItem{{
			Item:  &store.Item{ID: "bk_1", Source: store.SourceBookmark, Content: "long body"},
			Score: 0.9,
		}},
	}
	agg := New(newMemoryService(t), bookmarks)

	results, err := agg.Search(ctx, &Query{Query: "x", Sources: []store.SourceType{store.SourceBookmark}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Item.Content)
	// The source's own copy is untouched.
	assert.Equal(t, "long body", bookmarks.scored[0].Item.Content)

	full, err := agg.Search(ctx, &Query{Query: "x", Sources: []store.SourceType{store.SourceBookmark}, IncludeContent: true})
	require.NoError(t, err)
	assert.Equal(t, "long body", full[0].Item.Content)
}

func TestGetRecentMergesByCreationTime(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryService(t)
	_, err := mem.Remember(ctx, &memory.Entry{Content: "today's note"})
	require.NoError(t, err)

	old := time.Now().UTC().Add(-48 * time.Hour)
	bookmarks := &fakeSource{
		kind: store.SourceBookmark,
		recent: []*store.Item{
			{ID: "bk_old", Source: store.SourceBookmark, CreatedAt: timePtr(old)},
			{ID: "bk_untimed", Source: store.SourceBookmark},
		},
	}
	agg := New(mem, bookmarks)

	items, err := agg.GetRecent(ctx, 9)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Fixed per-source allocation: limit/3 each.
	assert.Equal(t, 3, bookmarks.recentHits)

	// Newest first, missing timestamps last.
	assert.True(t, strings.HasPrefix(items[0].ID, "mem_"))
	assert.Equal(t, "bk_old", items[1].ID)
	assert.Equal(t, "bk_untimed", items[2].ID)
}

func TestGetRecentPartialFailure(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryService(t)
	_, err := mem.Remember(ctx, &memory.Entry{Content: "still here"})
	require.NoError(t, err)

	agg := New(mem, &fakeSource{kind: store.SourceFeed, failing: true})

	items, err := agg.GetRecent(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRememberRoundTrip(t *testing.T) {
	ctx := context.Background()
	agg := New(newMemoryService(t))

	item, err := agg.Remember(ctx, &memory.Entry{Content: "buy milk"})
	require.NoError(t, err)
	assert.Equal(t, store.SourceMemory, item.Source)

	items, err := agg.GetRecent(ctx, 3)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestSourceErrorClassification(t *testing.T) {
	err := classifySourceErr(store.SourceFeed, context.DeadlineExceeded)
	assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.CodeOf(err))

	// Wrapped deadline errors classify the same way.
	err = classifySourceErr(store.SourceFeed, errors.Wrap(context.DeadlineExceeded, "fetch entries"))
	assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.CodeOf(err))

	err = classifySourceErr(store.SourceBookmark, errors.New("upstream down"))
	assert.Equal(t, apperrors.ErrCodeUpstreamUnavailable, apperrors.CodeOf(err))
}
