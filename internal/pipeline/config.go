package pipeline

import (
	"time"

	"github.com/hyperjump/kotae/internal/config"
)

// Config holds the tunables the orchestrator is built with.
type Config struct {
	// TopK is the number of coarse candidates fetched for the document route.
	TopK int
	// RerankTopN is the number of passages kept after reranking.
	RerankTopN int
	// StageTimeout bounds every call to a language model, weather API or retrieval service.
	StageTimeout time.Duration
	// BatchConcurrency limits how many questions RunMany answers at once.
	BatchConcurrency int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		TopK:             10,
		RerankTopN:       3,
		StageTimeout:     60 * time.Second,
		BatchConcurrency: 4,
	}
}

// ConfigFrom takes the pipeline settings from an application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		TopK:             cfg.Retrieval.TopK,
		RerankTopN:       cfg.Retrieval.RerankTopN,
		StageTimeout:     cfg.Pipeline.StageTimeout,
		BatchConcurrency: cfg.Pipeline.BatchConcurrency,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.RerankTopN <= 0 {
		c.RerankTopN = d.RerankTopN
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = d.StageTimeout
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = d.BatchConcurrency
	}
	return c
}
