package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"
)

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	logger     *zap.Logger

	baseURL    string
	timeout    time.Duration
	maxRetries int
}

// Option configures an OpenAIEmbedder.
type Option func(*OpenAIEmbedder)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *OpenAIEmbedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(e *OpenAIEmbedder) { e.baseURL = url }
}

// WithMaxRetries sets how many times the client retries failed requests.
func WithMaxRetries(n int) Option {
	return func(e *OpenAIEmbedder) { e.maxRetries = n }
}

// NewOpenAIEmbedder returns an embedder for model producing vectors of dimensions length.
func NewOpenAIEmbedder(apiKey, model string, dimensions int, opts ...Option) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder: api key is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("openai embedder: dimensions must be positive, got %d", dimensions)
	}
	e := &OpenAIEmbedder{
		model:      model,
		dimensions: dimensions,
		logger:     zap.NewNop(),
		timeout:    60 * time.Second,
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(utils.NewPooledClient(e.timeout)),
		option.WithMaxRetries(e.maxRetries),
	}
	if e.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(e.baseURL))
	}
	e.client = openai.NewClient(reqOpts...)
	return e, nil
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request and returns vectors in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		Dimensions:     openai.Int(int64(e.dimensions)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = utils.ToFloat32(d.Embedding)
	}
	e.logger.Debug("embedded texts",
		zap.Int("count", len(texts)),
		zap.String("model", e.model),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP transport is shared.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
