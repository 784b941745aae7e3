// Package vector stores passage embeddings and answers nearest-neighbour queries,
// either in process or in a Qdrant collection.
package vector

import "context"

// Point is one embedded passage.
type Point struct {
	ID      string
	Vector  []float32
	Content string
}

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
	Close() error
}

// Persister is implemented by indexes that keep their data in a local file.
type Persister interface {
	Save(path string) error
	Load(path string) error
}

// VectorResult is a single vector search hit. Content is empty when the index
// does not store passage text and the caller must resolve ID itself.
type VectorResult struct {
	ID      string
	Score   float64 // inner product; cosine similarity for normalized vectors
	Content string
}
