// Package retrieval finds candidate passages for a question and reorders them
// with a relevance model.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Ranked is a reranked passage with its relevance score.
type Ranked struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Searcher returns up to k passages most similar to query, best first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Reranker reorders candidates by relevance to query and keeps the best n.
// The returned order is authoritative.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []string, n int) ([]Ranked, error)
}

// Engine composes coarse similarity search and reranking.
type Engine struct {
	searcher Searcher
	reranker Reranker
	logger   *zap.Logger
}

// NewEngine returns an Engine. A nil logger disables logging.
func NewEngine(searcher Searcher, reranker Reranker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{searcher: searcher, reranker: reranker, logger: logger}
}

// SimilaritySearch returns up to k candidate passages for query.
func (e *Engine) SimilaritySearch(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}
	start := time.Now()
	out, err := e.searcher.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	e.logger.Debug("similarity search",
		zap.Int("k", k),
		zap.Int("candidates", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Rerank returns at most n candidates ordered by relevance. Empty candidates
// never reach the reranker.
func (e *Engine) Rerank(ctx context.Context, query string, candidates []string, n int) ([]Ranked, error) {
	if len(candidates) == 0 || n <= 0 {
		return []Ranked{}, nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	start := time.Now()
	out, err := e.reranker.Rerank(ctx, query, candidates, n)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	e.logger.Debug("rerank",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
