// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Document  DocumentConfig  `yaml:"document"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	QA        QAConfig        `yaml:"qa"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	// KeywordIndexPath is the directory for the bleve passage index; empty keeps it in memory.
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// DocumentConfig describes the single document served and how it is chunked.
type DocumentConfig struct {
	Path          string `yaml:"path"`
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	MinTextLength int    `yaml:"min_text_length"`
	// Watch re-ingests the document when the file changes on disk.
	Watch bool `yaml:"watch"`
	// BoilerplatePhrases are running headers/footers stripped from passages.
	BoilerplatePhrases []string `yaml:"boilerplate_phrases"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // onnx, http, mock
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
}

// VectorConfig selects the vector index implementation.
type VectorConfig struct {
	IndexType string       `yaml:"index_type"` // memory, faiss, chromem, qdrant
	Qdrant    QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds the gRPC address of a qdrant server.
type QdrantConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// QAConfig holds extractive reader settings.
type QAConfig struct {
	Provider  string `yaml:"provider"` // onnx, http, none
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
	MaxAnswer int    `yaml:"max_answer_tokens"`
	Endpoint  string `yaml:"endpoint"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Workers   int    `yaml:"workers"`
}

// RetrievalConfig holds the tunable retrieval and synthesis policy.
type RetrievalConfig struct {
	OverFetch        int     `yaml:"over_fetch"`
	QAMinScore       float64 `yaml:"qa_min_score"`
	MinSpanLength    int     `yaml:"min_span_length"`
	MaxSpans         int     `yaml:"max_spans"`
	ExcerptLength    int     `yaml:"excerpt_length"`
	ChunksPerPage    int     `yaml:"chunks_per_page"`
	DefaultTopK      int     `yaml:"default_top_k"`
	MaxTopK          int     `yaml:"max_top_k"`
	DefaultThreshold float64 `yaml:"default_threshold"`
	MaxSuggestions   int     `yaml:"max_suggestions"`
}

// QueryDefaults returns the request defaults derived from the retrieval config.
func (r *RetrievalConfig) QueryDefaults() models.QueryDefaults {
	return models.QueryDefaults{
		TopK:      r.DefaultTopK,
		MaxTopK:   r.MaxTopK,
		Threshold: r.DefaultThreshold,
	}
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, expands paths, and validates the result.
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	if cfg.Storage.KeywordIndexPath != "" {
		cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	}
	cfg.Document.Path = expandPath(cfg.Document.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.QA.ModelPath = expandPath(cfg.QA.ModelPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Document.ChunkOverlap <= 0 || c.Document.ChunkOverlap >= c.Document.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must satisfy 0 < overlap < chunk_size (got overlap=%d, size=%d)",
			models.ErrInvalidParameters, c.Document.ChunkOverlap, c.Document.ChunkSize)
	}
	if c.Retrieval.DefaultThreshold < 0 || c.Retrieval.DefaultThreshold > 1 {
		return fmt.Errorf("%w: default_threshold must be within [0,1]", models.ErrInvalidParameters)
	}
	if c.Retrieval.MaxTopK < c.Retrieval.DefaultTopK {
		return fmt.Errorf("%w: max_top_k (%d) is below default_top_k (%d)",
			models.ErrInvalidParameters, c.Retrieval.MaxTopK, c.Retrieval.DefaultTopK)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
