package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/kotae.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kotae/data/indices/vectors"
	}
	if cfg.Document.Path == "" {
		cfg.Document.Path = "/usr/local/var/kotae/data/libro.pdf"
	}
	if cfg.Document.ChunkSize == 0 {
		cfg.Document.ChunkSize = 1000
	}
	if cfg.Document.ChunkOverlap == 0 {
		cfg.Document.ChunkOverlap = 200
	}
	if cfg.Document.MinTextLength == 0 {
		cfg.Document.MinTextLength = 100
	}
	if cfg.Document.BoilerplatePhrases == nil {
		cfg.Document.BoilerplatePhrases = []string{"FUNDAMENTOS DE LA", "UNA VISIÓN INTRODUCTORIA"}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/paraphrase-multilingual-MiniLM-L12-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.Qdrant.Address == "" {
		cfg.Vector.Qdrant.Address = "localhost:6334"
	}
	if cfg.Vector.Qdrant.Collection == "" {
		cfg.Vector.Qdrant.Collection = "kotae_chunks"
	}
	if cfg.QA.Provider == "" {
		cfg.QA.Provider = "onnx"
	}
	if cfg.QA.ModelPath == "" {
		cfg.QA.ModelPath = "/usr/local/var/kotae/data/models/bert-base-spanish-squad2.onnx"
	}
	if cfg.QA.MaxTokens == 0 {
		cfg.QA.MaxTokens = 384
	}
	if cfg.QA.MaxAnswer == 0 {
		cfg.QA.MaxAnswer = 30
	}
	if cfg.QA.TimeoutMS == 0 {
		cfg.QA.TimeoutMS = 10000
	}
	if cfg.QA.Workers == 0 {
		cfg.QA.Workers = 1
	}
	if cfg.Retrieval.OverFetch == 0 {
		cfg.Retrieval.OverFetch = 15
	}
	if cfg.Retrieval.QAMinScore == 0 {
		cfg.Retrieval.QAMinScore = 0.12
	}
	if cfg.Retrieval.MinSpanLength == 0 {
		cfg.Retrieval.MinSpanLength = 6
	}
	if cfg.Retrieval.MaxSpans == 0 {
		cfg.Retrieval.MaxSpans = 4
	}
	if cfg.Retrieval.ExcerptLength == 0 {
		cfg.Retrieval.ExcerptLength = 250
	}
	if cfg.Retrieval.ChunksPerPage == 0 {
		cfg.Retrieval.ChunksPerPage = 3
	}
	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = 3
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 15
	}
	if cfg.Retrieval.DefaultThreshold == 0 {
		cfg.Retrieval.DefaultThreshold = 0.1
	}
	if cfg.Retrieval.MaxSuggestions == 0 {
		cfg.Retrieval.MaxSuggestions = 3
	}
}
