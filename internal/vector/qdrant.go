package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

const qdrantTimeout = 30 * time.Second

// QdrantIndex stores rows as points in a remote qdrant collection using
// Euclid distance. Every index gets its own collection so a rebuild never
// touches the collection that live queries read; Drop removes it once retired.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	dimensions  int
	created     bool
	size        int
	mu          sync.RWMutex
}

// NewQdrantIndex connects to the qdrant gRPC endpoint at address. The collection
// name is prefix plus a short random suffix.
func NewQdrantIndex(address, prefix string, dimensions int) (*QdrantIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", address, err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  prefix + "_" + uuid.New().String()[:8],
		dimensions:  dimensions,
	}, nil
}

// Collection returns the name of the backing collection.
func (q *QdrantIndex) Collection() string {
	return q.collection
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	if q.created {
		return nil
	}
	_, err := q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(q.dimensions),
					Distance: qdrant.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create qdrant collection %s: %w", q.collection, err)
	}
	q.created = true
	return nil
}

// Add upserts vectors as points numbered by row.
func (q *QdrantIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := checkDims(vectors, q.dimensions); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(q.size + i)),
			Vectors: qdrant.NewVectors(v...),
		}
	}
	resp, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           proto.Bool(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	status := resp.GetResult().GetStatus()
	if status != qdrant.UpdateStatus_Acknowledged && status != qdrant.UpdateStatus_Completed {
		return fmt.Errorf("qdrant upsert returned status %s", status)
	}
	q.size += len(vectors)
	return nil
}

// Search returns the k nearest rows. qdrant reports Euclid distance; it is squared here.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != q.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), q.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.size == 0 {
		return finish(nil, k), nil
	}
	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         query,
		Limit:          uint64(k),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}
	neighbors := make([]Neighbor, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		neighbors = append(neighbors, Neighbor{
			Index:    int(p.GetId().GetNum()),
			Distance: p.GetScore() * p.GetScore(),
		})
	}
	return finish(neighbors, k), nil
}

// Save records the collection name in path + ".qdrant"; the points live on the server.
func (q *QdrantIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.WriteFile(path+".qdrant", []byte(q.collection+"\n"), 0644); err != nil {
		return fmt.Errorf("write qdrant collection name: %w", err)
	}
	return nil
}

// Load switches to the collection named in path + ".qdrant" and counts its points.
// A missing file leaves the index unchanged.
func (q *QdrantIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path + ".qdrant")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read qdrant collection name: %w", err)
	}
	name := strings.TrimSpace(string(data))
	ctx, cancel := context.WithTimeout(context.Background(), qdrantTimeout)
	defer cancel()
	resp, err := q.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant count on %s failed: %w", name, err)
	}
	q.mu.Lock()
	q.collection = name
	q.created = true
	q.size = int(resp.GetResult().GetCount())
	q.mu.Unlock()
	return nil
}

// Drop deletes the backing collection. Called when the index is retired by a rebuild.
func (q *QdrantIndex) Drop(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.created {
		return nil
	}
	if _, err := q.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: q.collection}); err != nil {
		return fmt.Errorf("failed to delete qdrant collection %s: %w", q.collection, err)
	}
	q.created = false
	q.size = 0
	return nil
}

// Size returns the number of points.
func (q *QdrantIndex) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.size
}

// Dimensions returns the vector dimension.
func (q *QdrantIndex) Dimensions() int {
	return q.dimensions
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}
