package qa

import (
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Provider names accepted in qa.provider.
const (
	ProviderONNX = "onnx"
	ProviderHTTP = "http"
	ProviderNone = "none"
)

// New builds the reader named by cfg.Provider. It returns a nil Reader for
// "none", and also when the ONNX model cannot be loaded, in which case
// answers fall back to passage excerpts.
func New(cfg config.QAConfig, logger *zap.Logger) (Reader, error) {
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderHTTP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("qa.endpoint is required for the http provider")
		}
		return NewHTTPReader(cfg.Endpoint, time.Duration(cfg.TimeoutMS)*time.Millisecond), nil
	case ProviderONNX:
		r, err := NewONNXReader(cfg.ModelPath, cfg.MaxTokens, cfg.MaxAnswer)
		if err != nil {
			if logger != nil {
				logger.Warn("qa reader unavailable, answers will use excerpts",
					zap.String("model", cfg.ModelPath), zap.Error(err))
			}
			return nil, nil
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown qa provider %q", cfg.Provider)
	}
}
