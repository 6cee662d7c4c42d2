package embedding

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usenexus/nexus/server/service/memory"
	"github.com/usenexus/nexus/store"
	storetest "github.com/usenexus/nexus/store/test"
)

// flakyEmbedder fails until recovered, then produces a fixed vector.
type flakyEmbedder struct {
	failing   atomic.Bool
	callCount atomic.Int32
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.callCount.Add(1)
	if f.failing.Load() {
		return nil, assert.AnError
	}
	return []float32{1, 0, 0, 0}, nil
}

func (f *flakyEmbedder) Dimensions() int { return 4 }

func TestRunOnceBackfillsMissingEmbeddings(t *testing.T) {
	ctx := context.Background()
	embedder := &flakyEmbedder{}
	embedder.failing.Store(true)

	s := storetest.NewTestingStore(ctx, t)
	svc := memory.NewService(s, embedder)

	// Stored while the provider is down: persisted without a vector.
	_, err := svc.Store(ctx, &store.Item{ID: "mem_1", Source: store.SourceMemory, Content: "pending text"})
	require.NoError(t, err)

	pending, err := s.ListItemsWithoutEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Provider recovers; the runner picks the row up.
	embedder.failing.Store(false)
	NewRunner(svc).RunOnce(ctx)

	pending, err = s.ListItemsWithoutEmbedding(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	results, err := svc.Search(ctx, "pending", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRunOnceSkipsItemsWithoutText(t *testing.T) {
	ctx := context.Background()
	embedder := &flakyEmbedder{}
	s := storetest.NewTestingStore(ctx, t)
	svc := memory.NewService(s, embedder)

	_, err := s.UpsertItem(ctx, &store.Item{ID: "bk_bare", Source: store.SourceBookmark, URL: "https://example.com"})
	require.NoError(t, err)

	NewRunner(svc).RunOnce(ctx)
	assert.Zero(t, embedder.callCount.Load())
}
