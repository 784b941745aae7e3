// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding secrets. They are never read from the YAML file
// when the variable is set.
const (
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvOpenWeatherAPIKey = "OPENWEATHER_API_KEY"
	EnvCohereAPIKey      = "COHERE_API_KEY"
	EnvQdrantURL         = "QDRANT_URL"
	EnvQdrantAPIKey      = "QDRANT_API_KEY"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	LLM       LLMConfig       `yaml:"llm"`
	Weather   WeatherConfig   `yaml:"weather"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds log output settings. An empty File logs to stdout only.
type LoggingConfig struct {
	File string `yaml:"file"`
}

// LLMConfig selects and configures the chat-completion provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WeatherConfig configures the OpenWeather client. A zero CacheTTL disables caching.
type WeatherConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Units             string        `yaml:"units"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds coarse search and rerank settings.
type RetrievalConfig struct {
	Backend    string         `yaml:"backend"`
	TopK       int            `yaml:"top_k"`
	RerankTopN int            `yaml:"rerank_top_n"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Reranker   RerankerConfig `yaml:"reranker"`
	Breaker    BreakerConfig  `yaml:"breaker"`
}

// QdrantConfig locates the Qdrant collection holding passages. URL points at
// the gRPC port; an https scheme enables TLS.
type QdrantConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	ContentKey string        `yaml:"content_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RerankerConfig configures the cross-encoder rerank API.
type RerankerConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// BreakerConfig configures the circuit breakers guarding remote retrieval services.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// StorageConfig holds paths for the passage database and the local vector index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// IngestConfig holds chunking and document directory settings.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	DocumentsDir string   `yaml:"documents_dir"`
	Extensions   []string `yaml:"extensions"`
	Watch        bool     `yaml:"watch"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	StageTimeout     time.Duration `yaml:"stage_timeout"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
}

// Load reads and parses the config file at path, applies defaults, expands paths
// and overlays secrets from the environment.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	cfg.expandPaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and secrets read from
// the environment. Relative paths are resolved against the home directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	cfg.expandPaths("")
	return &cfg
}

// LoadEnv seeds the process environment from dotenv files. Missing files are
// ignored; variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv copies secrets from the environment into cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		cfg.LLM.APIKey = v
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := os.Getenv(EnvOpenWeatherAPIKey); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv(EnvCohereAPIKey); v != "" {
		cfg.Retrieval.Reranker.APIKey = v
	}
	if v := os.Getenv(EnvQdrantURL); v != "" {
		cfg.Retrieval.Qdrant.URL = v
	}
	if v := os.Getenv(EnvQdrantAPIKey); v != "" {
		cfg.Retrieval.Qdrant.APIKey = v
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Retrieval.Backend {
	case BackendLocal, BackendQdrant:
	default:
		return fmt.Errorf("unknown retrieval backend %q", c.Retrieval.Backend)
	}
	if c.Retrieval.RerankTopN > c.Retrieval.TopK {
		return fmt.Errorf("rerank_top_n (%d) cannot exceed top_k (%d)", c.Retrieval.RerankTopN, c.Retrieval.TopK)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}

// Save writes the config to path. Secrets are not written.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.LLM.APIKey = ""
	out.Weather.APIKey = ""
	out.Embedding.APIKey = ""
	out.Retrieval.Reranker.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths(configDir string) {
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.VectorIndexPath = expandPath(c.Storage.VectorIndexPath, configDir)
	c.Ingest.DocumentsDir = expandPath(c.Ingest.DocumentsDir, configDir)
	if c.Logging.File != "" {
		c.Logging.File = expandPath(c.Logging.File, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
