package models

import "errors"

var (
	// ErrIngestion means the document could not be read or yielded too little text.
	ErrIngestion = errors.New("ingestion failed")
	// ErrInvalidParameters means a request or chunking configuration is malformed.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrServiceUnavailable means a query arrived before any corpus was loaded.
	ErrServiceUnavailable = errors.New("service unavailable: no document has been ingested")
	// ErrRetrieval means embedding generation or the vector index lookup failed.
	ErrRetrieval = errors.New("retrieval failed")
)
