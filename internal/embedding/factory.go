package embedding

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Provider names accepted in embedding.provider.
const (
	ProviderONNX = "onnx"
	ProviderHTTP = "http"
	ProviderMock = "mock"
)

// New builds the embedder named by cfg.Provider, wrapped in a query cache.
// When the provider cannot be created it falls back to MockEmbedder and logs a warning.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	base, err := newProvider(cfg)
	if err != nil {
		if cfg.Provider == "" || cfg.Provider == ProviderMock {
			return nil, err
		}
		if logger != nil {
			logger.Warn("embedding provider unavailable, using mock embedder",
				zap.String("provider", cfg.Provider), zap.Error(err))
		}
		base = NewMockEmbedder(cfg.Dimensions)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(base, cfg.CacheSize), nil
	}
	return base, nil
}

func newProvider(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case ProviderONNX:
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("embedding.model_path is required for the onnx provider")
		}
		return NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case ProviderHTTP:
		if cfg.Model == "" {
			return nil, fmt.Errorf("embedding.model is required for the http provider")
		}
		return NewHTTPEmbedder(cfg.Endpoint, cfg.Model, cfg.Dimensions), nil
	case ProviderMock, "":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
