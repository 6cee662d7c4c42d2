package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"log/slog"

	"github.com/usenexus/nexus/plugin/cache"
	"github.com/usenexus/nexus/plugin/vector"
)

const embedCacheTTL = time.Hour

// CachedEmbedder memoizes an Embedder. Identical text maps to the same
// vector, so cached results are exact, not approximate.
type CachedEmbedder struct {
	inner Embedder
	cache cache.Service
}

// NewCachedEmbedder wraps inner with a cache.
func NewCachedEmbedder(inner Embedder, c cache.Service) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if buf, ok := e.cache.Get(ctx, key); ok {
		if v, err := vector.DecodeBlob(buf); err == nil {
			return v, nil
		}
		// A corrupt entry falls through to recompute.
	}

	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, key, vector.EncodeBlob(v), embedCacheTTL); err != nil {
		slog.Debug("failed to cache embedding", "error", err)
	}
	return v, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:" + hex.EncodeToString(sum[:])
}
