package vector

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type storedPoint struct {
	seq     int
	payload map[string]*qdrant.Value
}

// fakeQdrant is an in-memory stand-in for the Qdrant client. It answers
// requests against a missing collection with codes.NotFound, as the server does.
// Query ranks points by insertion order.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	created int
	size    uint64
	seq     int
	points  map[string]storedPoint
	failAll error
	calls   int
	limit   uint64
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{points: make(map[string]storedPoint)}
}

func missing() error {
	return status.Error(codes.NotFound, "Not found: Collection `docs` doesn't exist!")
}

func (f *fakeQdrant) begin() error {
	f.calls++
	return f.failAll
}

func (f *fakeQdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return false, err
	}
	return f.exists, nil
}

func (f *fakeQdrant) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return err
	}
	f.exists = true
	f.created++
	f.size = req.GetVectorsConfig().GetParams().GetSize()
	return nil
}

func (f *fakeQdrant) DeleteCollection(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return err
	}
	if !f.exists {
		return missing()
	}
	f.exists = false
	f.points = make(map[string]storedPoint)
	return nil
}

func (f *fakeQdrant) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return nil, err
	}
	if !f.exists {
		return nil, missing()
	}
	for _, p := range req.GetPoints() {
		f.seq++
		f.points[p.GetId().GetUuid()] = storedPoint{seq: f.seq, payload: p.GetPayload()}
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return nil, err
	}
	if !f.exists {
		return nil, missing()
	}
	f.limit = req.GetLimit()
	hits := make([]*qdrant.ScoredPoint, 0, len(f.points))
	for id, p := range f.points {
		hits = append(hits, &qdrant.ScoredPoint{
			Id:      qdrant.NewID(id),
			Score:   1 / float32(p.seq),
			Payload: p.payload,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit := int(f.limit); len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeQdrant) Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return nil, err
	}
	if !f.exists {
		return nil, missing()
	}
	for _, id := range req.GetPoints().GetPoints().GetIds() {
		delete(f.points, id.GetUuid())
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return 0, err
	}
	if !f.exists {
		return 0, missing()
	}
	return uint64(len(f.points)), nil
}

func (f *fakeQdrant) Close() error { return nil }

func TestQdrantIndex_Lifecycle(t *testing.T) {
	fake := newFakeQdrant()
	ctx := context.Background()

	idx, err := newQdrantIndex(fake, "docs", "page_content", 2)
	require.NoError(t, err)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "missing collection counts as empty")

	res, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res, "missing collection yields no candidates")

	err = idx.Upsert(ctx, []Point{
		{ID: "doc_chunk_0", Vector: []float32{1, 0}, Content: "Kalam was born in Rameswaram."},
		{ID: "doc_chunk_1", Vector: []float32{0, 1}, Content: "He became President in 2002."},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, uint64(2), fake.size)

	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	res, err = idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "doc_chunk_0", res[0].ID)
	assert.Equal(t, "Kalam was born in Rameswaram.", res[0].Content)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, uint64(1), fake.limit)

	require.NoError(t, idx.Remove(ctx, []string{"doc_chunk_0"}))
	n, _ = idx.Count(ctx)
	assert.Equal(t, int64(1), n)

	require.NoError(t, idx.Reset(ctx))
	n, _ = idx.Count(ctx)
	assert.Zero(t, n)
	require.NoError(t, idx.Reset(ctx), "resetting a missing collection is not an error")

	// Collection is recreated on the next upsert.
	require.NoError(t, idx.Upsert(ctx, []Point{{ID: "x", Vector: []float32{1, 0}, Content: "x"}}))
	assert.Equal(t, 2, fake.created)
}

func TestQdrantIndex_RemoveFromMissingCollection(t *testing.T) {
	idx, err := newQdrantIndex(newFakeQdrant(), "docs", "", 2)
	require.NoError(t, err)
	assert.NoError(t, idx.Remove(context.Background(), []string{"a"}))
}

func TestQdrantIndex_ServerErrorTripsBreaker(t *testing.T) {
	fake := newFakeQdrant()
	fake.failAll = status.Error(codes.Unavailable, "connection refused")

	b := resilience.NewBreaker("qdrant-test", config.BreakerConfig{MaxFailures: 1, OpenTimeout: time.Hour}, nil)
	idx, err := newQdrantIndex(fake, "docs", "", 2, WithQdrantBreaker(b))
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 3)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	_, err = idx.Search(context.Background(), []float32{1, 0}, 3)
	assert.True(t, errors.Is(err, resilience.ErrOpen))
	assert.Equal(t, 1, fake.calls)
}

func TestQdrantIndex_MissingCollectionDoesNotTripBreaker(t *testing.T) {
	b := resilience.NewBreaker("qdrant-test", config.BreakerConfig{MaxFailures: 1, OpenTimeout: time.Hour}, nil)
	idx, err := newQdrantIndex(newFakeQdrant(), "docs", "", 2, WithQdrantBreaker(b))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := idx.Search(context.Background(), []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, res)
	}
	assert.Equal(t, "closed", b.State())
}

func TestQdrantIndex_Validation(t *testing.T) {
	_, err := newQdrantIndex(newFakeQdrant(), "", "", 2)
	assert.Error(t, err)
	_, err = newQdrantIndex(newFakeQdrant(), "c", "", 0)
	assert.Error(t, err)

	idx, _ := newQdrantIndex(newFakeQdrant(), "c", "", 2)
	_, err = idx.Search(context.Background(), []float32{1}, 1)
	assert.Error(t, err)
	assert.Error(t, idx.Upsert(context.Background(), []Point{{ID: "a", Vector: []float32{1}}}))
}

func TestQdrantClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		host    string
		port    int
		tls     bool
		wantErr bool
	}{
		{"default port", "http://localhost", "localhost", 6334, false, false},
		{"explicit port", "http://qdrant:7334", "qdrant", 7334, false, false},
		{"tls", "https://xyz.cloud.qdrant.io:6334", "xyz.cloud.qdrant.io", 6334, true, false},
		{"no host", "localhost:6334", "", 0, false, true},
		{"bad port", "http://localhost:grpc", "", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := qdrantClientConfig(tt.url, "key")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Host)
			assert.Equal(t, tt.port, cfg.Port)
			assert.Equal(t, tt.tls, cfg.UseTLS)
			assert.Equal(t, "key", cfg.APIKey)
		})
	}
}

func TestPointID(t *testing.T) {
	u := "5f0c6a2e-8a4c-4d0e-9f2b-1c2d3e4f5a6b"
	assert.Equal(t, u, pointID(u))
	assert.Equal(t, pointID("file:abc_0"), pointID("file:abc_0"))
	assert.NotEqual(t, pointID("file:abc_0"), pointID("file:abc_1"))
}
