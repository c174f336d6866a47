package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides selected settings from KOTAE_* environment variables.
// Unparseable numbers are ignored.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("KOTAE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KOTAE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KOTAE_DOCUMENT_PATH"); v != "" {
		cfg.Document.Path = v
	}
	if v := os.Getenv("KOTAE_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("KOTAE_EMBEDDING_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("KOTAE_QA_PROVIDER"); v != "" {
		cfg.QA.Provider = v
	}
	if v := os.Getenv("KOTAE_QA_ENDPOINT"); v != "" {
		cfg.QA.Endpoint = v
	}
	if v := os.Getenv("KOTAE_VECTOR_INDEX"); v != "" {
		cfg.Vector.IndexType = v
	}
	if v := os.Getenv("KOTAE_QDRANT_ADDRESS"); v != "" {
		cfg.Vector.Qdrant.Address = v
	}
	if v := os.Getenv("KOTAE_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}
