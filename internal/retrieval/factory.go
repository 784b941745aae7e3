package retrieval

import (
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// New builds the Engine for cfg.Retrieval. chunks is consulted for hits that
// carry no payload text and may be nil for the qdrant backend.
func New(cfg *config.Config, embedder embedding.Embedder, index vector.VectorIndex, chunks ChunkStore, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var searcher Searcher
	if cfg.Retrieval.Backend == config.BackendQdrant {
		searcher = NewPayloadSearcher(embedder, index)
	} else {
		searcher = NewIndexSearcher(embedder, index, chunks)
	}

	rc := cfg.Retrieval.Reranker
	if rc.APIKey == "" {
		logger.Warn("no rerank api key configured, reranking by embedding similarity")
		return NewEngine(searcher, NewEmbeddingReranker(embedder), logger), nil
	}
	reranker, err := NewCohereReranker(rc.BaseURL, rc.APIKey, rc.Model,
		WithCohereTimeout(rc.Timeout),
		WithCohereLogger(logger),
		WithCohereBreaker(resilience.NewBreaker("cohere-rerank", cfg.Retrieval.Breaker, logger)),
	)
	if err != nil {
		return nil, err
	}
	return NewEngine(searcher, reranker, logger), nil
}
