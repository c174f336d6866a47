package vector

import (
	"context"
	"fmt"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for a single book.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses a FAISS IndexFlatL2. Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
	// IndexTypeChromem uses an embedded chromem-go collection.
	IndexTypeChromem IndexType = "chromem"
	// IndexTypeQdrant uses a remote qdrant collection over gRPC.
	IndexTypeQdrant IndexType = "qdrant"
)

// Options carries settings used only by some index types.
type Options struct {
	QdrantAddress    string
	QdrantCollection string
}

// NewVectorIndex creates an empty vector index of the specified type.
func NewVectorIndex(indexType string, dimensions int, opts Options) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	case IndexTypeChromem:
		return NewChromemIndex(dimensions)
	case IndexTypeQdrant:
		if opts.QdrantAddress == "" {
			return nil, fmt.Errorf("qdrant index requires an address")
		}
		prefix := opts.QdrantCollection
		if prefix == "" {
			prefix = "kotae_chunks"
		}
		return NewQdrantIndex(opts.QdrantAddress, prefix, dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss, chromem, qdrant)", indexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}

// Dropper is implemented by indices whose storage outlives the process and
// must be removed explicitly when a rebuild retires them.
type Dropper interface {
	Drop(ctx context.Context) error
}
