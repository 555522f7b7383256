package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  *DatabaseConfig  `json:"database,omitempty"`
	AI        AIConfig         `json:"ai"`
	Index     IndexConfig      `json:"index"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Query     QueryConfig      `json:"query"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	EmbedModel string      `json:"embed_model"`
	Data       interface{} `json:"data"`
}

// IndexConfig locates the persisted index artifacts: a vector file and a
// metadata csv stored under BaseKey in the configured artifact store.
type IndexConfig struct {
	BaseKey string           `json:"base_key"`
	Store   IndexStoreConfig `json:"store"`
}

type IndexStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RetrievalConfig struct {
	ChunkSizeChars      int `json:"chunk_size_chars"`
	EmbeddingBatchSize  int `json:"embedding_batch_size"`
	K                   int `json:"retrieval_k"`
	PromptTokenBudget   int `json:"prompt_token_budget"`
	GenerationMaxTokens int `json:"generation_max_output_tokens"`
}

type QueryConfig struct {
	Workers           int    `json:"workers"`
	QueueSize         int    `json:"queue_size"`
	RateLimitMS       int    `json:"rate_limit_ms"`
	CleanupCron       string `json:"cleanup_cron"`
	RetentionHours    int    `json:"retention_hours"`
	AnswerCacheSize   int    `json:"answer_cache_size"`
	AnswerCacheTTLMin int    `json:"answer_cache_ttl_minutes"`
	EmbedCacheSize    int    `json:"embed_cache_size"`
	EmbedCacheTTLMin  int    `json:"embed_cache_ttl_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.Index.BaseKey == "" {
		return nil, fmt.Errorf("index.base_key is required")
	}
	if cfg.Index.Store.Type == "" {
		cfg.Index.Store.Type = "local"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Retrieval.ChunkSizeChars <= 0 {
		cfg.Retrieval.ChunkSizeChars = 1000
	}
	if cfg.Retrieval.EmbeddingBatchSize <= 0 {
		cfg.Retrieval.EmbeddingBatchSize = 32
	}
	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = 5
	}
	if cfg.Retrieval.PromptTokenBudget <= 0 {
		cfg.Retrieval.PromptTokenBudget = 4096
	}
	if cfg.Retrieval.GenerationMaxTokens <= 0 {
		cfg.Retrieval.GenerationMaxTokens = 1000
	}
	if cfg.Query.Workers <= 0 {
		cfg.Query.Workers = 4
	}
	if cfg.Query.QueueSize <= 0 {
		cfg.Query.QueueSize = 64
	}
	if cfg.Query.CleanupCron == "" {
		cfg.Query.CleanupCron = "0 * * * *"
	}
	if cfg.Query.RetentionHours <= 0 {
		cfg.Query.RetentionHours = 72
	}
	if cfg.Query.AnswerCacheSize <= 0 {
		cfg.Query.AnswerCacheSize = 1024
	}
	if cfg.Query.AnswerCacheTTLMin <= 0 {
		cfg.Query.AnswerCacheTTLMin = 120
	}
	if cfg.Query.EmbedCacheSize <= 0 {
		cfg.Query.EmbedCacheSize = 4096
	}
	if cfg.Query.EmbedCacheTTLMin <= 0 {
		cfg.Query.EmbedCacheTTLMin = 120
	}
}
