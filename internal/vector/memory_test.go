package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func points(ids []string, vecs [][]float32) []Point {
	out := make([]Point, len(ids))
	for i := range ids {
		out[i] = Point{ID: ids[i], Vector: vecs[i]}
	}
	return out
}

func TestMemoryIndex_UpsertSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Upsert(ctx, points([]string{"a", "b", "c"}, vecs)); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Content != "" {
		t.Error("memory index does not keep content")
	}
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, []Point{{ID: "x", Vector: []float32{1, 0}}})
	_ = idx.Upsert(ctx, []Point{{ID: "x", Vector: []float32{0, 1}}})
	if idx.Size() != 1 {
		t.Fatalf("expected 1 vector after replace, got %d", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{0, 1}, 1)
	if res[0].Score < 0.99 {
		t.Errorf("vector was not replaced, score=%f", res[0].Score)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Upsert(ctx, []Point{{ID: "x", Vector: []float32{1}}}); err == nil {
		t.Error("expected dimension error on upsert")
	}
	if _, err := idx.Search(ctx, []float32{1, 0, 0}, 1); err == nil {
		t.Error("expected dimension error on search")
	}
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestMemoryIndex_EmptySearch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	res, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil || len(res) != 0 {
		t.Errorf("expected no results, got %v, %v", res, err)
	}
}

func TestMemoryIndex_RemoveReset(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, points([]string{"x", "y"}, [][]float32{{1, 0}, {0, 1}}))
	if err := idx.Remove(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.Count(ctx); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
	_ = idx.Upsert(ctx, []Point{{ID: "y", Vector: []float32{1, 0}}})
	if idx.Size() != 1 {
		t.Errorf("upsert after remove should replace y, size=%d", idx.Size())
	}
	if err := idx.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 {
		t.Errorf("expected empty index after reset, got %d", idx.Size())
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indices", "vectors.bin")
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	_ = idx.Upsert(ctx, points([]string{"chunk-1", "chunk-2"}, [][]float32{{1, 0}, {0, 1}}))
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("expected 2 vectors, got %d", loaded.Size())
	}
	res, _ := loaded.Search(ctx, []float32{0, 1}, 1)
	if res[0].ID != "chunk-2" {
		t.Errorf("expected chunk-2, got %s", res[0].ID)
	}
	// Upsert after load must replace rather than duplicate.
	_ = loaded.Upsert(ctx, []Point{{ID: "chunk-1", Vector: []float32{0.5, 0.5}}})
	if loaded.Size() != 2 {
		t.Errorf("expected 2 vectors, got %d", loaded.Size())
	}

	wrongDims, _ := NewMemoryIndex(3)
	if err := wrongDims.Load(path); err == nil {
		t.Error("expected dimension mismatch error")
	}
	missing, _ := NewMemoryIndex(2)
	if err := missing.Load(filepath.Join(t.TempDir(), "none.bin")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}
