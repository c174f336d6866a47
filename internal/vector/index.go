// Package vector provides nearest-neighbor indices over chunk embeddings.
package vector

import "context"

// VectorIndex stores one vector per chunk, positionally: row i belongs to chunk i.
// Implementations must be safe for concurrent Search calls.
type VectorIndex interface {
	// Add appends rows in order; the first added row gets index Size().
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns exactly k neighbors sorted ascending by squared L2 distance.
	// Missing slots are padded with Index -1.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Neighbor is one search hit: a row index and its squared L2 distance to the query.
type Neighbor struct {
	Index    int
	Distance float32
}

// NoNeighbor pads search results when fewer than k rows exist.
var NoNeighbor = Neighbor{Index: -1, Distance: maxDistance}
