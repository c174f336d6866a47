package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

const chromemCollection = "chunks"

// ChromemIndex stores rows in an embedded chromem-go collection. chromem ranks
// by cosine similarity over normalized vectors; distances are reported as
// 2(1-similarity), the squared L2 distance between the unit vectors.
type ChromemIndex struct {
	dimensions int
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
}

// NewChromemIndex creates an in-memory chromem collection.
func NewChromemIndex(dimensions int) (*ChromemIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	db := chromem.NewDB()
	c, err := db.GetOrCreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chromem collection: %w", err)
	}
	return &ChromemIndex{dimensions: dimensions, db: db, collection: c}, nil
}

// Add appends vectors as new rows; row ids are their decimal positions.
func (c *ChromemIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := checkDims(vectors, c.dimensions); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.collection.Count()
	docs := make([]chromem.Document, len(vectors))
	for i, v := range vectors {
		emb := make([]float32, len(v))
		copy(emb, v)
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(base + i),
			Embedding: emb,
		}
	}
	if err := c.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns the k nearest rows.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != c.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), c.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.collection.Count()
	if n == 0 {
		return finish(nil, k), nil
	}
	if n > k {
		n = k
	}
	results, err := c.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}
	neighbors := make([]Neighbor, 0, len(results))
	for _, r := range results {
		row, err := strconv.Atoi(r.ID)
		if err != nil {
			continue
		}
		d := 2 * (1 - r.Similarity)
		if d < 0 {
			d = 0
		}
		neighbors = append(neighbors, Neighbor{Index: row, Distance: d})
	}
	return finish(neighbors, k), nil
}

// Save exports the collection to path + ".chromem.gob".
func (c *ChromemIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.db.ExportToFile(path+".chromem.gob", false, "", chromemCollection); err != nil {
		return fmt.Errorf("failed to export chromem collection: %w", err)
	}
	return nil
}

// Load imports the collection from path + ".chromem.gob". A missing file leaves the index unchanged.
func (c *ChromemIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file := path + ".chromem.gob"
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}
	db := chromem.NewDB()
	if err := db.ImportFromFile(file, "", chromemCollection); err != nil {
		return fmt.Errorf("failed to import chromem collection: %w", err)
	}
	coll := db.GetCollection(chromemCollection, nil)
	if coll == nil {
		return fmt.Errorf("chromem file %s has no %q collection", file, chromemCollection)
	}
	c.mu.Lock()
	c.db = db
	c.collection = coll
	c.mu.Unlock()
	return nil
}

// Size returns the number of rows.
func (c *ChromemIndex) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.Count()
}

// Dimensions returns the vector dimension.
func (c *ChromemIndex) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the collection lives in memory.
func (c *ChromemIndex) Close() error {
	return nil
}

// Type returns the index type identifier.
func (c *ChromemIndex) Type() string {
	return string(IndexTypeChromem)
}
