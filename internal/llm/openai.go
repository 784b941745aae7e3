package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"
)

// ErrEmptyCompletion is returned when the provider answers without any choice.
var ErrEmptyCompletion = errors.New("llm returned no choices")

const (
	// DefaultOllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama server.
	DefaultOllamaBaseURL = "http://localhost:11434/v1/"

	// Ollama ignores the key but the SDK sends one.
	ollamaAPIKey = "ollama"
)

// OpenAIClient completes prompts with the OpenAI chat completions API, or with
// any server speaking the same protocol.
type OpenAIClient struct {
	client   openai.Client
	provider string
	model    string
	opts     options
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient returns a client for model.
func NewOpenAIClient(apiKey, model string, opts ...Option) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai client: api key is required")
	}
	return newChatClient("openai", apiKey, model, opts...), nil
}

// NewOllamaClient returns a client for a model served by Ollama at baseURL,
// or at DefaultOllamaBaseURL when baseURL is empty. baseURL is the
// OpenAI-compatible root, ending in /v1.
func NewOllamaClient(baseURL, model string, opts ...Option) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return newChatClient("ollama", ollamaAPIKey, model, append(opts, WithBaseURL(baseURL))...)
}

func newChatClient(provider, apiKey, model string, opts ...Option) *OpenAIClient {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(utils.NewPooledClient(o.timeout)),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	return &OpenAIClient{
		client:   openai.NewClient(reqOpts...),
		provider: provider,
		model:    model,
		opts:     o,
	}
}

// Complete sends one system and one user message and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.opts.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	c.opts.logger.Debug("llm completion",
		zap.String("provider", c.provider),
		zap.String("model", c.model),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}
