package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/resilience"
)

func TestCohereReranker_Rerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rerank-english-v3.0", req.Model)
		assert.Equal(t, "q", req.Query)
		assert.Equal(t, 2, req.TopN)
		assert.False(t, req.ReturnDocuments)

		_, _ = w.Write([]byte(`{"results":[{"index":2,"relevance_score":0.91},{"index":0,"relevance_score":0.12}]}`))
	}))
	defer srv.Close()

	r, err := NewCohereReranker(srv.URL, "test-key", "rerank-english-v3.0")
	require.NoError(t, err)

	out, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Ranked{{Text: "c", Score: 0.91}, {Text: "a", Score: 0.12}}, out)
}

func TestCohereReranker_IndexOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":7,"relevance_score":0.5}]}`))
	}))
	defer srv.Close()

	r, err := NewCohereReranker(srv.URL, "k", "m")
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", []string{"a"}, 1)
	var rerr *RerankError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Error(), "out of range")
}

func TestCohereReranker_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api token"}`))
	}))
	defer srv.Close()

	r, err := NewCohereReranker(srv.URL, "k", "m")
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", []string{"a"}, 1)
	var rerr *RerankError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
	assert.Equal(t, "invalid api token", rerr.Message)
}

func TestCohereReranker_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := resilience.NewBreaker("test", config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	r, err := NewCohereReranker(srv.URL, "k", "m", WithCohereBreaker(b))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = r.Rerank(context.Background(), "q", []string{"a"}, 1)
		require.Error(t, err)
	}
	_, err = r.Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNewCohereReranker_RequiresKey(t *testing.T) {
	_, err := NewCohereReranker("http://x", "", "m")
	assert.Error(t, err)
}
