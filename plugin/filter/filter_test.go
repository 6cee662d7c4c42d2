package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usenexus/nexus/store"
)

func itemWith(source store.SourceType, tags []string, createdAt time.Time) *store.Item {
	return &store.Item{
		ID:        "x",
		Source:    source,
		Tags:      tags,
		CreatedAt: &createdAt,
	}
}

func TestCompileRejectsInvalidExpression(t *testing.T) {
	_, err := Compile(`source ==`)
	assert.Error(t, err)
}

func TestMatchBySource(t *testing.T) {
	f, err := Compile(`source == "bookmark"`)
	require.NoError(t, err)

	assert.True(t, f.Match(itemWith(store.SourceBookmark, nil, time.Now())))
	assert.False(t, f.Match(itemWith(store.SourceFeed, nil, time.Now())))
}

func TestMatchByTag(t *testing.T) {
	f, err := Compile(`"golang" in tags`)
	require.NoError(t, err)

	assert.True(t, f.Match(itemWith(store.SourceMemory, []string{"golang", "notes"}, time.Now())))
	assert.False(t, f.Match(itemWith(store.SourceMemory, []string{"rust"}, time.Now())))
	assert.False(t, f.Match(itemWith(store.SourceMemory, nil, time.Now())))
}

func TestMatchByCreatedTs(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := Compile(`created_ts > 1704067200`)
	require.NoError(t, err)

	assert.True(t, f.Match(itemWith(store.SourceMemory, nil, cutoff.Add(time.Hour))))
	assert.False(t, f.Match(itemWith(store.SourceMemory, nil, cutoff.Add(-time.Hour))))

	// Items without a timestamp evaluate created_ts as 0.
	assert.False(t, f.Match(&store.Item{ID: "y", Source: store.SourceMemory}))
}

func TestApplyPreservesOrder(t *testing.T) {
	f, err := Compile(`source != "feed"`)
	require.NoError(t, err)

	now := time.Now()
	items := []*store.Item{
		itemWith(store.SourceBookmark, nil, now),
		itemWith(store.SourceFeed, nil, now),
		itemWith(store.SourceMemory, nil, now),
	}
	got := f.Apply(items)
	require.Len(t, got, 2)
	assert.Equal(t, store.SourceBookmark, got[0].Source)
	assert.Equal(t, store.SourceMemory, got[1].Source)
}
