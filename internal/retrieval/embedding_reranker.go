package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// EmbeddingReranker scores candidates by cosine similarity to the query,
// mapped from [-1,1] into [0,1]. It serves when no rerank API is configured.
type EmbeddingReranker struct {
	embedder embedding.Embedder
}

var _ Reranker = (*EmbeddingReranker)(nil)

// NewEmbeddingReranker returns a reranker backed by embedder.
func NewEmbeddingReranker(embedder embedding.Embedder) *EmbeddingReranker {
	return &EmbeddingReranker{embedder: embedder}
}

// Rerank implements Reranker.
func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, candidates []string, n int) ([]Ranked, error) {
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	texts = append(texts, candidates...)
	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	q := normalized(vecs[0])

	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		cos := vector.InnerProduct(q, normalized(vecs[i+1]))
		out[i] = Ranked{Text: c, Score: utils.Clamp01((cos + 1) / 2)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n < len(out) {
		out = out[:n]
	}
	return out, nil
}

func normalized(v []float32) []float32 {
	c := make([]float32, len(v))
	copy(c, v)
	utils.NormalizeL2(c)
	return c
}
