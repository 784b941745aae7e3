// Package embedding provides text embeddings for passages and questions, with an
// LRU cache for repeated queries.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the embedder selected by cfg.Provider and wraps it in a cache when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.Dimensions,
			WithBaseURL(cfg.BaseURL), WithLogger(logger))
		if err != nil {
			return nil, err
		}
		base = e
	case config.ProviderMock:
		base = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if cfg.CacheSize <= 0 {
		return base, nil
	}
	return NewCachedEmbedder(base, cfg.CacheSize)
}
