package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Client talks to a running kotae server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    utils.NewPooledClient(timeout),
	}
}

// Ask answers one question.
func (c *Client) Ask(ctx context.Context, question string) (*models.QueryResponse, error) {
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/query", models.QueryRequest{Question: question}, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AskMany answers a batch of questions.
func (c *Client) AskMany(ctx context.Context, questions []string) (*models.BatchQueryResponse, error) {
	var out models.BatchQueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/batch-query", models.BatchQueryRequest{Questions: questions}, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Collection returns collection statistics.
func (c *Client) Collection(ctx context.Context) (*models.CollectionInfo, error) {
	var out models.CollectionInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/collection", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clear removes every document from the collection.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/collection", nil, http.StatusOK, nil)
}

// Ingest asks the server to ingest the file or directory at path, which must be
// readable by the server. The decoded response body is returned as-is.
func (c *Client) Ingest(ctx context.Context, path string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", models.IngestRequest{Path: path}, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in interface{}, want int, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
