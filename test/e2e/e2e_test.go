package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

const e2eDimensions = 32

type env struct {
	store   *storage.SQLiteStorage
	holder  *corpus.Holder
	indexer *indexer.Indexer
	engine  *search.Engine
}

func newEnv(t *testing.T, dir string) *env {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:     filepath.Join(dir, "kotae.db"),
			VectorIndexPath:  filepath.Join(dir, "indices", "vectors"),
			KeywordIndexPath: filepath.Join(dir, "indices", "keywords"),
		},
		Document:  config.DocumentConfig{ChunkSize: 200, ChunkOverlap: 40, MinTextLength: 100},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: e2eDimensions, BatchSize: 4},
		Vector:    config.VectorConfig{IndexType: "memory"},
		QA:        config.QAConfig{Provider: "none"},
	}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(e2eDimensions)
	holder := corpus.NewHolder(corpus.WithLogger(zap.NewNop()))
	t.Cleanup(func() {
		_ = holder.Close()
		_ = emb.Close()
		_ = store.Close()
	})

	idx, err := indexer.NewIndexer(store, emb, holder, extract.NewExtractor(), indexer.SettingsFromConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	retriever := search.NewRetriever(emb, nil, search.NewCleaner(nil), search.PolicyFromConfig(cfg.Retrieval, cfg.QA), zap.NewNop())
	return &env{
		store:   store,
		holder:  holder,
		indexer: idx,
		engine:  search.NewEngine(holder, retriever, cfg.Retrieval),
	}
}

func writeFixture(t *testing.T, dir, ext string, paragraphs []string) string {
	t.Helper()
	content, err := EncodeFixture(ext, paragraphs)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "libro"+ext)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestE2E_IngestAndQueryEveryFormat(t *testing.T) {
	for _, ext := range SupportedFileExtensions {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			e := newEnv(t, dir)
			ctx := context.Background()

			res, err := e.indexer.Ingest(ctx, writeFixture(t, dir, ext, Textbook))
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if res.ChunksCreated == 0 || res.Generation != 1 {
				t.Fatalf("unexpected result: %+v", res)
			}
			stored, err := e.store.CountChunks(ctx)
			if err != nil || stored != int64(res.ChunksCreated) {
				t.Fatalf("stored chunks = %d, %v; want %d", stored, err, res.ChunksCreated)
			}

			for _, qc := range QueryCases {
				hits, err := e.engine.Passages(ctx, qc.Query, 3)
				if err != nil {
					t.Fatalf("Passages(%q): %v", qc.Query, err)
				}
				if len(hits) == 0 {
					t.Errorf("Passages(%q) found nothing", qc.Query)
					continue
				}
				if !strings.Contains(strings.ToLower(hits[0].Chunk.Text), qc.MustHit) {
					t.Errorf("Passages(%q) top hit %q lacks %q", qc.Query, hits[0].Chunk.Text, qc.MustHit)
				}
				if !strings.HasPrefix(hits[0].Source, "Pág. ") {
					t.Errorf("unexpected source label %q", hits[0].Source)
				}
			}
		})
	}
}

func TestE2E_SemanticSearchFindsStoredChunk(t *testing.T) {
	dir := t.TempDir()
	e := newEnv(t, dir)
	ctx := context.Background()

	if _, err := e.indexer.Ingest(ctx, writeFixture(t, dir, ".txt", Textbook)); err != nil {
		t.Fatal(err)
	}
	chunks, err := e.store.ListChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range chunks {
		ans, err := e.engine.Search(ctx, &models.SearchQuery{Query: c.Text, TopK: 1})
		if err != nil {
			t.Fatalf("Search chunk %d: %v", c.ID, err)
		}
		if !ans.FoundResults || len(ans.Results) != 1 || ans.Results[0].ChunkID != c.ID {
			t.Errorf("chunk %d text should retrieve itself first, got %+v", c.ID, ans.Results)
		}
		if ans.Answer == "" {
			t.Errorf("chunk %d: empty answer", c.ID)
		}
	}
}

func TestE2E_ReingestReplacesCorpus(t *testing.T) {
	dir := t.TempDir()
	e := newEnv(t, dir)
	ctx := context.Background()

	if _, err := e.indexer.Ingest(ctx, writeFixture(t, dir, ".txt", Textbook)); err != nil {
		t.Fatal(err)
	}

	revised := []string{
		"Capítulo 5. Los árboles de decisión dividen el espacio de atributos con preguntas sucesivas hasta llegar a hojas que asignan una clase a cada ejemplo.",
		"Capítulo 6. El bosque aleatorio combina muchos árboles entrenados sobre muestras distintas y promedia sus votos para reducir la varianza del modelo.",
	}
	res, err := e.indexer.Ingest(ctx, writeFixture(t, dir, ".md", revised))
	if err != nil {
		t.Fatal(err)
	}
	if res.Generation != 2 || e.holder.Generation() != 2 {
		t.Fatalf("generation = %d (holder %d), want 2", res.Generation, e.holder.Generation())
	}

	hits, err := e.engine.Passages(ctx, "bosque", 3)
	if err != nil || len(hits) == 0 {
		t.Fatalf("new corpus should be searchable: %v, %v", hits, err)
	}
	old, err := e.engine.Passages(ctx, "recompensa", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range old {
		if strings.Contains(h.Chunk.Text, "recompensa") {
			t.Errorf("old corpus passage still served: %q", h.Chunk.Text)
		}
	}
	info, err := e.store.GetCorpusInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.SnapshotID != res.Info.SnapshotID || !strings.HasSuffix(info.Source, "libro.md") {
		t.Errorf("stored corpus info not replaced: %+v", info)
	}
}
