package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "be brief", body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "hello", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "weather"}
			}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL+"/v1/"), WithMaxRetries(0))
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "weather", out)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-test", "m", WithBaseURL(srv.URL+"/v1/"), WithMaxRetries(0))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-bad", "m", WithBaseURL(srv.URL+"/v1/"), WithMaxRetries(0))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestOllamaClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-7",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Mumbai"}}]
		}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/v1/", "llama3", WithTimeout(time.Second), WithMaxRetries(0))
	out, err := c.Complete(context.Background(), "extract city", "weather in Mumbai?")
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", out)
}

func TestOllamaClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"message": "model \"missing\" not found", "type": "api_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL+"/v1/", "missing", WithMaxRetries(0)).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama chat completion")
	assert.Contains(t, err.Error(), "404")
}

func TestNewOllamaClient_DefaultBaseURL(t *testing.T) {
	c := NewOllamaClient("", "llama3")
	assert.Equal(t, DefaultOllamaBaseURL, c.opts.baseURL)
	assert.Equal(t, "ollama", c.provider)
}

func TestMockClient(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockClient(func(system, user string) (string, error) {
		if user == "fail" {
			return "", boom
		}
		return system + ":" + user, nil
	})
	out, err := m.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "s:u", out)
	_, err = m.Complete(context.Background(), "s", "fail")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, m.Calls(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewStaticClient("x").Complete(ctx, "s", "u")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "bard"}, nil)
	assert.Error(t, err)

	c, err := New(config.LLMConfig{Provider: config.ProviderOllama, Model: "llama3"}, nil)
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, c)
	assert.Equal(t, "ollama", c.(*OpenAIClient).provider)

	c, err = New(config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}
