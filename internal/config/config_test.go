package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
llm:
  model: "gpt-4o"
  temperature: 0.2
weather:
  timeout: 5s
retrieval:
  backend: qdrant
  top_k: 20
  rerank_top_n: 5
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLM.Temperature != 0.2 {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Weather.Timeout != 5*time.Second {
		t.Errorf("weather timeout = %v", cfg.Weather.Timeout)
	}
	if cfg.Retrieval.Backend != BackendQdrant || cfg.Retrieval.TopK != 20 || cfg.Retrieval.RerankTopN != 5 {
		t.Errorf("unexpected retrieval config: %+v", cfg.Retrieval)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database_path should be absolute, got %s", cfg.Storage.DatabasePath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/kotae.db"
ingest:
  documents_dir: "./docs"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "db", "kotae.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "docs"); cfg.Ingest.DocumentsDir != want {
		t.Errorf("documents_dir = %s, want %s", cfg.Ingest.DocumentsDir, want)
	}
}

func TestLoad_envOverridesSecrets(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	t.Setenv(EnvOpenWeatherAPIKey, "ow-test")
	t.Setenv(EnvCohereAPIKey, "co-test")
	t.Setenv(EnvQdrantURL, "http://qdrant:6334")
	t.Setenv(EnvQdrantAPIKey, "qd-test")
	path := writeConfig(t, `
llm:
  api_key: "from-file"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("openai key not taken from env: llm=%q embedding=%q", cfg.LLM.APIKey, cfg.Embedding.APIKey)
	}
	if cfg.Weather.APIKey != "ow-test" {
		t.Errorf("weather key = %q", cfg.Weather.APIKey)
	}
	if cfg.Retrieval.Reranker.APIKey != "co-test" {
		t.Errorf("reranker key = %q", cfg.Retrieval.Reranker.APIKey)
	}
	if cfg.Retrieval.Qdrant.URL != "http://qdrant:6334" || cfg.Retrieval.Qdrant.APIKey != "qd-test" {
		t.Errorf("qdrant = %+v", cfg.Retrieval.Qdrant)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown provider", "llm:\n  provider: bard\n", "llm provider"},
		{"unknown backend", "retrieval:\n  backend: faiss\n", "retrieval backend"},
		{"rerank larger than top k", "retrieval:\n  top_k: 2\n  rerank_top_n: 3\n", "rerank_top_n"},
		{"overlap too large", "ingest:\n  chunk_size: 100\n  chunk_overlap: 100\n", "chunk_overlap"},
		{"bad yaml", "server: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Temperature != 0 {
		t.Errorf("default llm: %+v", cfg.LLM)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Retrieval.TopK != 10 || cfg.Retrieval.RerankTopN != 3 {
		t.Errorf("default retrieval: top_k=%d rerank_top_n=%d", cfg.Retrieval.TopK, cfg.Retrieval.RerankTopN)
	}
	if cfg.Retrieval.Qdrant.Collection != "pdf_documents" || cfg.Retrieval.Qdrant.ContentKey != "page_content" {
		t.Errorf("default qdrant: %+v", cfg.Retrieval.Qdrant)
	}
	if cfg.Retrieval.Reranker.Model != "rerank-english-v3.0" {
		t.Errorf("default reranker model: %s", cfg.Retrieval.Reranker.Model)
	}
	if cfg.Weather.Timeout != 10*time.Second || cfg.Weather.Units != "metric" || cfg.Weather.CacheTTL != 0 {
		t.Errorf("default weather: %+v", cfg.Weather)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("default chunking: %d/%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if len(cfg.Ingest.Extensions) != 3 || cfg.Ingest.Extensions[0] != ".pdf" {
		t.Errorf("default extensions: %v", cfg.Ingest.Extensions)
	}
	if cfg.Pipeline.BatchConcurrency != 4 || cfg.Pipeline.StageTimeout != 60*time.Second {
		t.Errorf("default pipeline: %+v", cfg.Pipeline)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database path should be absolute, got %s", cfg.Storage.DatabasePath)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("KOTAE_TEST_LOADENV=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("KOTAE_TEST_LOADENV") })
	if err := LoadEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("KOTAE_TEST_LOADENV"); got != "from-dotenv" {
		t.Errorf("KOTAE_TEST_LOADENV = %q", got)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.LLM.APIKey = "secret"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("saved config must not contain secrets")
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
