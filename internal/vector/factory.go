package vector

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/resilience"
	"go.uber.org/zap"
)

// NewVectorIndex creates the index for the configured retrieval backend.
// The local backend loads any index previously saved at cfg.Storage.VectorIndexPath.
func NewVectorIndex(cfg *config.Config, logger *zap.Logger) (VectorIndex, error) {
	dims := cfg.Embedding.Dimensions
	switch cfg.Retrieval.Backend {
	case config.BackendLocal, "":
		idx, err := NewMemoryIndex(dims)
		if err != nil {
			return nil, err
		}
		if err := idx.Load(cfg.Storage.VectorIndexPath); err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		return idx, nil
	case config.BackendQdrant:
		q := cfg.Retrieval.Qdrant
		idx, err := NewQdrantIndex(q.URL, q.APIKey, q.Collection, q.ContentKey, dims,
			WithQdrantTimeout(q.Timeout),
			WithQdrantLogger(logger),
			WithQdrantBreaker(resilience.NewBreaker("qdrant", cfg.Retrieval.Breaker, logger)),
		)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown retrieval backend: %s (supported: local, qdrant)", cfg.Retrieval.Backend)
	}
}
