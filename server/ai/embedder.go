// Package ai provides text embedding on top of any OpenAI-compatible
// provider (OpenAI, SiliconFlow, an Ollama gateway).
package ai

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	apperrors "github.com/usenexus/nexus/server/internal/errors"
)

// DefaultMaxInputRunes bounds the text sent to the embedding model.
// Longer input is truncated silently to cap latency and storage cost.
const DefaultMaxInputRunes = 1000

// Embedder maps text to a fixed-dimension dense vector. Implementations
// must be deterministic for identical input.
type Embedder interface {
	// Embed generates the vector for a single text. The text must be
	// non-empty after trimming.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// Config holds the embedding provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	MaxRetries int
	// MaxInputRunes overrides DefaultMaxInputRunes when positive.
	MaxInputRunes int
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxInputRunes <= 0 {
		c.MaxInputRunes = DefaultMaxInputRunes
	}
}

// OpenAIEmbedder implements Embedder against an OpenAI-compatible API.
// The underlying client is constructed lazily exactly once; concurrent
// first use is safe.
type OpenAIEmbedder struct {
	config Config

	initOnce sync.Once
	client   *openai.Client
}

// NewOpenAIEmbedder creates an embedder. The provider client is not
// built until the first Embed call.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	cfg.ApplyDefaults()
	return &OpenAIEmbedder{config: cfg}
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.EmbeddingFailed("cannot embed empty text", nil)
	}
	text = Truncate(text, e.config.MaxInputRunes)

	e.initOnce.Do(func() {
		clientConfig := openai.DefaultConfig(e.config.APIKey)
		if e.config.BaseURL != "" {
			clientConfig.BaseURL = e.config.BaseURL
		}
		e.client = openai.NewClientWithConfig(clientConfig)
	})

	var vector []float32
	err := e.doWithRetry(ctx, func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(e.config.Model),
			Dimensions: e.config.Dimensions,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("empty embedding response")
		}
		vector = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, apperrors.EmbeddingFailed("embedding request failed", err)
	}
	return vector, nil
}

// doWithRetry executes fn with exponential backoff.
func (e *OpenAIEmbedder) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < e.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("embedding request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// Truncate limits text to at most max runes.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
