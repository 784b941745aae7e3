package vector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// chunkIDKey is the payload key holding the caller's ID when it is not a UUID.
	chunkIDKey = "chunk_id"

	defaultQdrantPort = 6334
)

// ErrCollectionNotFound is returned when the Qdrant collection does not exist.
var ErrCollectionNotFound = errors.New("qdrant collection not found")

// qdrantAPI is the subset of *qdrant.Client used by QdrantIndex.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Close() error
}

var _ qdrantAPI = (*qdrant.Client)(nil)

// QdrantIndex keeps passages in a Qdrant collection.
// Passage text lives in the payload under contentKey, so search results carry Content.
type QdrantIndex struct {
	api        qdrantAPI
	collection string
	contentKey string
	dimensions int
	timeout    time.Duration
	breaker    *resilience.Breaker
	logger     *zap.Logger

	mu      sync.Mutex
	ensured bool
}

var _ VectorIndex = (*QdrantIndex)(nil)

// QdrantOption configures a QdrantIndex.
type QdrantOption func(*QdrantIndex)

// WithQdrantLogger sets the logger.
func WithQdrantLogger(logger *zap.Logger) QdrantOption {
	return func(q *QdrantIndex) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithQdrantTimeout bounds each request.
func WithQdrantTimeout(d time.Duration) QdrantOption {
	return func(q *QdrantIndex) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithQdrantBreaker routes every request through b.
func WithQdrantBreaker(b *resilience.Breaker) QdrantOption {
	return func(q *QdrantIndex) { q.breaker = b }
}

// NewQdrantIndex returns an index over collection on the Qdrant gRPC endpoint at
// rawURL (host and port; https enables TLS). The collection is created with
// cosine distance on the first Upsert if it does not exist.
func NewQdrantIndex(rawURL, apiKey, collection, contentKey string, dimensions int, opts ...QdrantOption) (*QdrantIndex, error) {
	cfg, err := qdrantClientConfig(rawURL, apiKey)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	q, err := newQdrantIndex(client, collection, contentKey, dimensions, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	q.logger.Debug("qdrant client ready",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.Bool("tls", cfg.UseTLS))
	return q, nil
}

func newQdrantIndex(api qdrantAPI, collection, contentKey string, dimensions int, opts ...QdrantOption) (*QdrantIndex, error) {
	if collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if contentKey == "" {
		contentKey = "page_content"
	}
	q := &QdrantIndex{
		api:        api,
		collection: collection,
		contentKey: contentKey,
		dimensions: dimensions,
		timeout:    30 * time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

func qdrantClientConfig(rawURL, apiKey string) (*qdrant.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", rawURL)
	}
	port := defaultQdrantPort
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid qdrant port in %q: %w", rawURL, err)
		}
	}
	return &qdrant.Config{
		Host:                   u.Hostname(),
		Port:                   port,
		APIKey:                 apiKey,
		UseTLS:                 u.Scheme == "https",
		SkipCompatibilityCheck: true,
	}, nil
}

// Upsert writes points with their content in the payload.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if len(p.Vector) != q.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", p.ID, len(p.Vector), q.dimensions)
		}
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				q.contentKey: p.Content,
				chunkIDKey:   p.ID,
			}),
		}
	}
	return q.do(ctx, "upsert", func(ctx context.Context) error {
		_, err := q.api.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         structs,
		})
		return err
	})
}

// Search returns the k nearest points with their payload content.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != q.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), q.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	var hits []*qdrant.ScoredPoint
	err := q.do(ctx, "query", func(ctx context.Context) error {
		var err error
		hits, err = q.api.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.collection,
			Query:          qdrant.NewQuery(query...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return err
	})
	if errors.Is(err, ErrCollectionNotFound) {
		// Nothing has been ingested yet.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	results := make([]*VectorResult, 0, len(hits))
	for _, h := range hits {
		r := &VectorResult{ID: h.GetId().GetUuid(), Score: float64(h.GetScore())}
		if r.ID == "" {
			r.ID = strconv.FormatUint(h.GetId().GetNum(), 10)
		}
		payload := h.GetPayload()
		if id := payload[chunkIDKey].GetStringValue(); id != "" {
			r.ID = id
		}
		r.Content = payload[q.contentKey].GetStringValue()
		results = append(results, r)
	}
	return results, nil
}

// Remove deletes points by the IDs given to Upsert.
func (q *QdrantIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pids[i] = qdrant.NewID(pointID(id))
	}
	err := q.do(ctx, "delete", func(ctx context.Context) error {
		_, err := q.api.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qdrant.NewPointsSelector(pids...),
		})
		return err
	})
	if errors.Is(err, ErrCollectionNotFound) {
		return nil
	}
	return err
}

// Count returns the collection's point count, or zero when the collection does not exist.
func (q *QdrantIndex) Count(ctx context.Context) (int64, error) {
	var n uint64
	err := q.do(ctx, "count", func(ctx context.Context) error {
		var err error
		n, err = q.api.Count(ctx, &qdrant.CountPoints{
			CollectionName: q.collection,
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	if errors.Is(err, ErrCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Reset deletes the collection. It is recreated on the next Upsert.
func (q *QdrantIndex) Reset(ctx context.Context) error {
	err := q.do(ctx, "delete collection", func(ctx context.Context) error {
		return q.api.DeleteCollection(ctx, q.collection)
	})
	if err != nil && !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	q.mu.Lock()
	q.ensured = false
	q.mu.Unlock()
	q.logger.Info("qdrant collection deleted", zap.String("collection", q.collection))
	return nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.api.Close()
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured {
		return nil
	}
	var exists bool
	err := q.do(ctx, "collection exists", func(ctx context.Context) error {
		var err error
		exists, err = q.api.CollectionExists(ctx, q.collection)
		return err
	})
	if err != nil {
		return err
	}
	if !exists {
		err := q.do(ctx, "create collection", func(ctx context.Context) error {
			return q.api.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: q.collection,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     uint64(q.dimensions),
					Distance: qdrant.Distance_Cosine,
				}),
			})
		})
		if err != nil {
			return fmt.Errorf("create qdrant collection: %w", err)
		}
		q.logger.Info("qdrant collection created",
			zap.String("collection", q.collection), zap.Int("dimensions", q.dimensions))
	}
	q.ensured = true
	return nil
}

// do runs one request through the breaker under the request timeout.
// A missing collection is reported as ErrCollectionNotFound without counting as a failure.
func (q *QdrantIndex) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	notFound := false
	_, err := resilience.Call(q.breaker, func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, q.timeout)
		defer cancel()
		err := fn(ctx)
		if status.Code(err) == codes.NotFound {
			notFound = true
			return struct{}{}, nil
		}
		if err != nil {
			return struct{}{}, fmt.Errorf("qdrant %s: %w", op, err)
		}
		return struct{}{}, nil
	})
	if notFound {
		return ErrCollectionNotFound
	}
	return err
}

// pointID maps an arbitrary ID to a Qdrant-compatible UUID. UUIDs pass through unchanged.
func pointID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}
