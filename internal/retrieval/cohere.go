package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/resilience"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// RerankError is returned for a failed or malformed rerank API response.
type RerankError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RerankError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("rerank api: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("rerank api: status %d: %s", e.StatusCode, e.Message)
	default:
		return "rerank api: " + e.Message
	}
}

func (e *RerankError) Unwrap() error { return e.Err }

// CohereReranker calls the Cohere rerank endpoint.
type CohereReranker struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
}

var _ Reranker = (*CohereReranker)(nil)

// CohereOption configures a CohereReranker.
type CohereOption func(*CohereReranker)

// WithCohereLogger sets the logger.
func WithCohereLogger(logger *zap.Logger) CohereOption {
	return func(c *CohereReranker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCohereTimeout bounds each request.
func WithCohereTimeout(d time.Duration) CohereOption {
	return func(c *CohereReranker) {
		if d > 0 {
			c.http = utils.NewPooledClient(d)
		}
	}
}

// WithCohereBreaker routes every request through b.
func WithCohereBreaker(b *resilience.Breaker) CohereOption {
	return func(c *CohereReranker) { c.breaker = b }
}

// NewCohereReranker returns a reranker for model at baseURL.
func NewCohereReranker(baseURL, apiKey, model string, opts ...CohereOption) (*CohereReranker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cohere api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("rerank model is required")
	}
	c := &CohereReranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    utils.NewPooledClient(30 * time.Second),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message"`
}

// Rerank implements Reranker.
func (c *CohereReranker) Rerank(ctx context.Context, query string, candidates []string, n int) ([]Ranked, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: candidates,
		TopN:      n,
	})
	if err != nil {
		return nil, err
	}

	resp, err := resilience.Call(c.breaker, func() (*rerankResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Ranked, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, &RerankError{Message: fmt.Sprintf("result index %d out of range [0,%d)", r.Index, len(candidates))}
		}
		out = append(out, Ranked{Text: candidates[r.Index], Score: r.RelevanceScore})
	}
	c.logger.Debug("cohere rerank", zap.Int("documents", len(candidates)), zap.Int("results", len(out)))
	return out, nil
}

func (c *CohereReranker) post(ctx context.Context, body []byte) (*rerankResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &RerankError{Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, &RerankError{StatusCode: res.StatusCode, Err: err}
	}
	var out rerankResponse
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &out) == nil && out.Message != "" {
			msg = out.Message
		}
		return nil, &RerankError{StatusCode: res.StatusCode, Message: utils.Truncate(msg, 200)}
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &RerankError{StatusCode: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}
