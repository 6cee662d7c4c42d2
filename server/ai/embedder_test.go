package ai

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usenexus/nexus/plugin/cache"
)

// fakeEmbedder produces a fixed-dimension vector derived from the text
// length, counting calls.
type fakeEmbedder struct {
	dimensions int
	callCount  atomic.Int32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.callCount.Add(1)
	v := make([]float32, f.dimensions)
	for i := range v {
		v[i] = float32(len(text)%7) + float32(i)*0.1
	}
	return v, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dimensions }

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abcd", 2))
	assert.Equal(t, "日本", Truncate("日本語のテキスト", 2))
	assert.Equal(t, "abcd", Truncate("abcd", 0))
}

func TestOpenAIEmbedderRejectsEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder(Config{APIKey: "test"})

	_, err := e.Embed(context.Background(), "   \n\t ")
	assert.Error(t, err)
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 384, cfg.Dimensions)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, DefaultMaxInputRunes, cfg.MaxInputRunes)
}

func TestCachedEmbedderHitsCacheOnRepeat(t *testing.T) {
	ctx := context.Background()
	inner := &fakeEmbedder{dimensions: 8}
	c := cache.NewLRU(cache.DefaultConfig())
	defer c.Close()

	e := NewCachedEmbedder(inner, c)

	first, err := e.Embed(ctx, "memory safety")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "memory safety")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.callCount.Load())
	assert.Equal(t, 8, e.Dimensions())
}

func TestCachedEmbedderDistinctTexts(t *testing.T) {
	ctx := context.Background()
	inner := &fakeEmbedder{dimensions: 4}
	c := cache.NewLRU(cache.DefaultConfig())
	defer c.Close()

	e := NewCachedEmbedder(inner, c)

	_, err := e.Embed(ctx, "one")
	require.NoError(t, err)
	_, err = e.Embed(ctx, "two texts")
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.callCount.Load())
}
