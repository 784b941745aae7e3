package retrieval

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// ChunkStore resolves chunk IDs to stored passages.
type ChunkStore interface {
	GetChunks(ctx context.Context, ids []string) (map[string]*models.DocumentChunk, error)
}

// IndexSearcher embeds the query and searches a vector index. Hits without
// payload text are resolved through the chunk store.
type IndexSearcher struct {
	embedder embedding.Embedder
	index    vector.VectorIndex
	chunks   ChunkStore
}

var _ Searcher = (*IndexSearcher)(nil)

// NewIndexSearcher returns a searcher that loads passage text from chunks.
func NewIndexSearcher(embedder embedding.Embedder, index vector.VectorIndex, chunks ChunkStore) *IndexSearcher {
	return &IndexSearcher{embedder: embedder, index: index, chunks: chunks}
}

// NewPayloadSearcher returns a searcher for indexes that store passage text
// alongside each vector.
func NewPayloadSearcher(embedder embedding.Embedder, index vector.VectorIndex) *IndexSearcher {
	return &IndexSearcher{embedder: embedder, index: index}
}

// Search implements Searcher.
func (s *IndexSearcher) Search(ctx context.Context, query string, k int) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, h := range hits {
		if h.Content == "" {
			missing = append(missing, h.ID)
		}
	}
	var resolved map[string]*models.DocumentChunk
	if len(missing) > 0 {
		if s.chunks == nil {
			return nil, fmt.Errorf("index returned %d hits without text and no chunk store is configured", len(missing))
		}
		resolved, err = s.chunks.GetChunks(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("load chunks: %w", err)
		}
	}

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Content != "" {
			out = append(out, h.Content)
			continue
		}
		// Stale index entries whose chunk is gone are skipped.
		if c, ok := resolved[h.ID]; ok {
			out = append(out, c.Content)
		}
	}
	return out, nil
}
