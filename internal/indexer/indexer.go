package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

const defaultBatchSize = 32

// Settings controls how a document becomes a corpus snapshot.
type Settings struct {
	ChunkSize     int
	ChunkOverlap  int
	MinTextLength int
	BatchSize     int

	IndexType     string
	VectorOptions vector.Options
	// VectorIndexPath is where the vector index is saved; empty skips saving.
	VectorIndexPath string
	// KeywordIndexPath is the parent directory of per-snapshot bleve indices; empty keeps them in memory.
	KeywordIndexPath string
}

// SettingsFromConfig collects the ingestion settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ChunkSize:     cfg.Document.ChunkSize,
		ChunkOverlap:  cfg.Document.ChunkOverlap,
		MinTextLength: cfg.Document.MinTextLength,
		BatchSize:     cfg.Embedding.BatchSize,
		IndexType:     cfg.Vector.IndexType,
		VectorOptions: vector.Options{
			QdrantAddress:    cfg.Vector.Qdrant.Address,
			QdrantCollection: cfg.Vector.Qdrant.Collection,
		},
		VectorIndexPath:  cfg.Storage.VectorIndexPath,
		KeywordIndexPath: cfg.Storage.KeywordIndexPath,
	}
}

// Result describes a completed ingestion.
type Result struct {
	ChunksCreated int
	Generation    int64
	Info          models.CorpusInfo
}

// Indexer turns a document into a snapshot: chunks in storage, a vector index,
// and a keyword index, published to the holder only once all three are built.
type Indexer struct {
	storage   storage.Storage
	embedder  embedding.Embedder
	holder    *corpus.Holder
	extractor *extract.Extractor
	chunker   *Chunker
	settings  Settings
	logger    *zap.Logger // optional

	mu sync.Mutex // serializes rebuilds
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. extractor may be nil; Ingest then reads every
// file as plain text. It fails with ErrInvalidParameters on bad chunk settings.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Embedder,
	holder *corpus.Holder,
	extractor *extract.Extractor,
	settings Settings,
	opts ...IndexerOption,
) (*Indexer, error) {
	chunker, err := NewChunker(settings.ChunkSize, settings.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = defaultBatchSize
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		storage:   store,
		embedder:  embedder,
		holder:    holder,
		extractor: extractor,
		chunker:   chunker,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Ingest extracts the file at path and rebuilds the corpus from it.
func (idx *Indexer) Ingest(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: absolute path: %v", models.ErrIngestion, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: document not found: %v", models.ErrIngestion, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", models.ErrIngestion, absPath)
	}
	if idx.logger != nil {
		idx.logger.Info("extracting document", zap.String("path", absPath))
	}
	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %v", models.ErrIngestion, absPath, err)
	}
	return idx.IngestText(ctx, text, absPath)
}

// IngestText rebuilds the corpus from text, chunked exactly as given. On any
// failure the previously active snapshot stays in place.
func (idx *Indexer) IngestText(ctx context.Context, text, source string) (*Result, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	length := TextLength(text)
	if length < idx.settings.MinTextLength {
		return nil, fmt.Errorf("%w: extracted text too short (%d < %d characters)",
			models.ErrIngestion, length, idx.settings.MinTextLength)
	}
	chunks := idx.chunker.Chunk(text)
	if idx.logger != nil {
		idx.logger.Info("document chunked", zap.String("source", source),
			zap.Int("characters", length), zap.Int("chunks", len(chunks)))
	}

	start := time.Now()
	vectors, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIngestion, err)
	}

	info := models.CorpusInfo{
		SnapshotID:   uuid.NewString(),
		Source:       source,
		ChunkSize:    idx.settings.ChunkSize,
		ChunkOverlap: idx.settings.ChunkOverlap,
		ChunkCount:   len(chunks),
		TextLength:   length,
		IngestedAt:   time.Now().UTC(),
	}
	snap, err := idx.buildSnapshot(ctx, info, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIngestion, err)
	}
	if err := idx.persist(ctx, snap); err != nil {
		idx.discard(snap)
		return nil, fmt.Errorf("%w: %v", models.ErrIngestion, err)
	}

	gen := idx.holder.Swap(snap)
	if idx.logger != nil {
		idx.logger.Info("corpus published",
			zap.Int64("generation", gen),
			zap.String("snapshot_id", info.SnapshotID),
			zap.Int("chunks", len(chunks)),
			zap.Duration("took", time.Since(start)))
	}
	return &Result{ChunksCreated: len(chunks), Generation: gen, Info: info}, nil
}

// embedChunks embeds chunk texts in batches and returns unit vectors in chunk order.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	batch := idx.settings.BatchSize
	for lo := 0; lo < len(chunks); lo += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := min(lo+batch, len(chunks))
		texts := make([]string, 0, hi-lo)
		for _, c := range chunks[lo:hi] {
			texts = append(texts, c.Text)
		}
		embs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", lo, hi-1, err)
		}
		if len(embs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embs), len(texts))
		}
		for _, e := range embs {
			vectors = append(vectors, vector.Normalize(e))
		}
		if idx.logger != nil {
			idx.logger.Debug("embedded batch", zap.Int("done", hi), zap.Int("total", len(chunks)))
		}
	}
	return vectors, nil
}

// buildSnapshot creates fresh vector and keyword indices for chunks.
func (idx *Indexer) buildSnapshot(ctx context.Context, info models.CorpusInfo, chunks []models.Chunk, vectors [][]float32) (*corpus.Snapshot, error) {
	vi, err := vector.NewVectorIndex(idx.settings.IndexType, idx.embedder.Dimensions(), idx.settings.VectorOptions)
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	if err := vi.Add(ctx, vectors); err != nil {
		discardIndex(vi)
		return nil, fmt.Errorf("index vectors: %w", err)
	}
	kw, err := idx.buildKeywords(ctx, info.SnapshotID, chunks)
	if err != nil {
		discardIndex(vi)
		return nil, err
	}
	return &corpus.Snapshot{Info: info, Chunks: chunks, Index: vi, Keywords: kw}, nil
}

func (idx *Indexer) buildKeywords(ctx context.Context, snapshotID string, chunks []models.Chunk) (*keyword.BleveIndex, error) {
	dir := ""
	if idx.settings.KeywordIndexPath != "" {
		dir = filepath.Join(idx.settings.KeywordIndexPath, snapshotID)
	}
	kw, err := keyword.NewBleveIndex(dir)
	if err != nil {
		return nil, err
	}
	passages := make([]keyword.Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = keyword.Passage{ChunkID: c.ID, Text: c.Text}
	}
	if err := kw.IndexChunks(ctx, passages); err != nil {
		_ = kw.Remove()
		return nil, fmt.Errorf("index passages: %w", err)
	}
	return kw, nil
}

// persist saves the vector index file, then replaces the stored chunks. The
// database commit is the point after which a restart restores this snapshot.
func (idx *Indexer) persist(ctx context.Context, snap *corpus.Snapshot) error {
	if path := idx.settings.VectorIndexPath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
		if err := snap.Index.Save(path); err != nil {
			return fmt.Errorf("save vector index: %w", err)
		}
	}
	if err := idx.storage.ReplaceCorpus(ctx, &snap.Info, snap.Chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

// discard releases a snapshot that was never published.
func (idx *Indexer) discard(snap *corpus.Snapshot) {
	discardIndex(snap.Index)
	if snap.Keywords != nil {
		if err := snap.Keywords.Remove(); err != nil && idx.logger != nil {
			idx.logger.Warn("failed to remove keyword index", zap.Error(err))
		}
	}
}

func discardIndex(vi vector.VectorIndex) {
	if d, ok := vi.(vector.Dropper); ok {
		_ = d.Drop(context.Background())
	}
	_ = vi.Close()
}

// Restore publishes the persisted corpus when the stored chunks and the saved
// vector index agree. It reports false, with a nil error, when there is
// nothing consistent to restore; the service then waits for an ingestion.
func (idx *Indexer) Restore(ctx context.Context) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.holder.Loaded() {
		return false, nil
	}
	chunks, err := idx.storage.ListChunks(ctx)
	if err != nil {
		return false, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return false, nil
	}
	info, err := idx.storage.GetCorpusInfo(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("load corpus info: %w", err)
		}
		info = &models.CorpusInfo{SnapshotID: uuid.NewString(), ChunkCount: len(chunks)}
	}

	vi, err := vector.NewVectorIndex(idx.settings.IndexType, idx.embedder.Dimensions(), idx.settings.VectorOptions)
	if err != nil {
		return false, fmt.Errorf("create vector index: %w", err)
	}
	if err := vi.Load(idx.settings.VectorIndexPath); err != nil {
		_ = vi.Close()
		if idx.logger != nil {
			idx.logger.Warn("vector index not restored", zap.Error(err))
		}
		return false, nil
	}
	if vi.Size() != len(chunks) {
		_ = vi.Close()
		if idx.logger != nil {
			idx.logger.Warn("stored chunks and vector index disagree; ingestion required",
				zap.Int("chunks", len(chunks)), zap.Int("vectors", vi.Size()))
		}
		return false, nil
	}

	if err := idx.pruneKeywordDirs(); err != nil && idx.logger != nil {
		idx.logger.Warn("failed to prune stale keyword indices", zap.Error(err))
	}
	kw, err := idx.buildKeywords(ctx, info.SnapshotID, chunks)
	if err != nil {
		_ = vi.Close()
		return false, err
	}
	gen := idx.holder.Swap(&corpus.Snapshot{Info: *info, Chunks: chunks, Index: vi, Keywords: kw})
	if idx.logger != nil {
		idx.logger.Info("corpus restored", zap.Int64("generation", gen), zap.Int("chunks", len(chunks)))
	}
	return true, nil
}

// pruneKeywordDirs removes keyword indices left behind by earlier processes.
func (idx *Indexer) pruneKeywordDirs() error {
	if idx.settings.KeywordIndexPath == "" {
		return nil
	}
	entries, err := os.ReadDir(idx.settings.KeywordIndexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			errs = append(errs, os.RemoveAll(filepath.Join(idx.settings.KeywordIndexPath, e.Name())))
		}
	}
	return errors.Join(errs...)
}
