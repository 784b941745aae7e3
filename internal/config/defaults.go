package config

import "time"

// Provider and backend names accepted in the config file.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"

	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// ApplyDefaults sets default values for any zero values in cfg.
// Temperature and weather cache TTL default to zero.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}

	if cfg.Weather.BaseURL == "" {
		cfg.Weather.BaseURL = "http://api.openweathermap.org/data/2.5/weather"
	}
	if cfg.Weather.Units == "" {
		cfg.Weather.Units = "metric"
	}
	if cfg.Weather.Timeout == 0 {
		cfg.Weather.Timeout = 10 * time.Second
	}
	if cfg.Weather.RequestsPerSecond == 0 {
		cfg.Weather.RequestsPerSecond = 5
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	if cfg.Retrieval.Backend == "" {
		cfg.Retrieval.Backend = BackendLocal
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.RerankTopN == 0 {
		cfg.Retrieval.RerankTopN = 3
	}
	if cfg.Retrieval.Qdrant.URL == "" {
		cfg.Retrieval.Qdrant.URL = "http://localhost:6334"
	}
	if cfg.Retrieval.Qdrant.Collection == "" {
		cfg.Retrieval.Qdrant.Collection = "pdf_documents"
	}
	if cfg.Retrieval.Qdrant.ContentKey == "" {
		cfg.Retrieval.Qdrant.ContentKey = "page_content"
	}
	if cfg.Retrieval.Qdrant.Timeout == 0 {
		cfg.Retrieval.Qdrant.Timeout = 30 * time.Second
	}
	if cfg.Retrieval.Reranker.BaseURL == "" {
		cfg.Retrieval.Reranker.BaseURL = "https://api.cohere.com"
	}
	if cfg.Retrieval.Reranker.Model == "" {
		cfg.Retrieval.Reranker.Model = "rerank-english-v3.0"
	}
	if cfg.Retrieval.Reranker.Timeout == 0 {
		cfg.Retrieval.Reranker.Timeout = 30 * time.Second
	}
	if cfg.Retrieval.Breaker.MaxFailures == 0 {
		cfg.Retrieval.Breaker.MaxFailures = 5
	}
	if cfg.Retrieval.Breaker.OpenTimeout == 0 {
		cfg.Retrieval.Breaker.OpenTimeout = 30 * time.Second
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".kotae/db/kotae.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = ".kotae/indices/vectors.bin"
	}

	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.DocumentsDir == "" {
		cfg.Ingest.DocumentsDir = ".kotae/documents"
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".txt", ".md"}
	}

	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = 60 * time.Second
	}
	if cfg.Pipeline.BatchConcurrency == 0 {
		cfg.Pipeline.BatchConcurrency = 4
	}
}
