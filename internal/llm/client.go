// Package llm provides chat-completion clients behind a single text-in, text-out interface.
package llm

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Client completes a prompt made of system instructions and user text.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// New builds the client selected by cfg.Provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(cfg.APIKey, cfg.Model,
			WithBaseURL(cfg.BaseURL),
			WithTemperature(cfg.Temperature),
			WithTimeout(cfg.Timeout),
			WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model,
			WithTemperature(cfg.Temperature),
			WithTimeout(cfg.Timeout),
			WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
