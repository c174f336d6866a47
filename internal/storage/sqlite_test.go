package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_ReplaceCorpus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.GetCorpusInfo(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound before ingestion, got %v", err)
	}

	first := []models.Chunk{
		{ID: 0, Text: "uno", WordCount: 1},
		{ID: 1, Text: "dos tres", WordCount: 2},
		{ID: 2, Text: "cuatro", WordCount: 1},
	}
	info := &models.CorpusInfo{SnapshotID: "s1", Source: "libro.pdf", ChunkSize: 1000, ChunkOverlap: 200, ChunkCount: 3, TextLength: 2500}
	if err := store.ReplaceCorpus(ctx, info, first); err != nil {
		t.Fatal(err)
	}
	if info.IngestedAt.IsZero() {
		t.Error("IngestedAt should be set")
	}

	second := []models.Chunk{{ID: 0, Text: "nuevo", WordCount: 1}}
	info2 := &models.CorpusInfo{SnapshotID: "s2", Source: "libro2.pdf", ChunkSize: 500, ChunkOverlap: 100, ChunkCount: 1, TextLength: 400,
		IngestedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	if err := store.ReplaceCorpus(ctx, info2, second); err != nil {
		t.Fatal(err)
	}

	chunks, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Text != "nuevo" {
		t.Errorf("chunks should be replaced wholesale, got %+v", chunks)
	}
	n, err := store.CountChunks(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountChunks = %d, %v", n, err)
	}

	got, err := store.GetCorpusInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.SnapshotID != "s2" || got.Source != "libro2.pdf" || got.ChunkCount != 1 || got.ChunkSize != 500 {
		t.Errorf("GetCorpusInfo = %+v", got)
	}
	if !got.IngestedAt.Equal(info2.IngestedAt) {
		t.Errorf("IngestedAt = %v, want %v", got.IngestedAt, info2.IngestedAt)
	}
}

func TestSQLiteStorage_ReplaceCorpusRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	original := []models.Chunk{{ID: 0, Text: "original", WordCount: 1}}
	if err := store.ReplaceCorpus(ctx, &models.CorpusInfo{SnapshotID: "s1"}, original); err != nil {
		t.Fatal(err)
	}
	dup := []models.Chunk{{ID: 0, Text: "a"}, {ID: 0, Text: "b"}}
	if err := store.ReplaceCorpus(ctx, &models.CorpusInfo{SnapshotID: "s2"}, dup); err == nil {
		t.Fatal("expected duplicate id error")
	}
	chunks, _ := store.ListChunks(ctx)
	if len(chunks) != 1 || chunks[0].Text != "original" {
		t.Errorf("failed replace should leave the previous corpus, got %+v", chunks)
	}
	info, _ := store.GetCorpusInfo(ctx)
	if info == nil || info.SnapshotID != "s1" {
		t.Errorf("corpus info should be unchanged, got %+v", info)
	}
}

func TestSQLiteStorage_GetChunk(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	if err := store.ReplaceCorpus(ctx, &models.CorpusInfo{}, []models.Chunk{{ID: 0, Text: "hola mundo", WordCount: 2}}); err != nil {
		t.Fatal(err)
	}
	c, err := store.GetChunk(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "hola mundo" || c.WordCount != 2 {
		t.Errorf("GetChunk = %+v", c)
	}
	if _, err := store.GetChunk(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListChunksEmpty(t *testing.T) {
	store := newTestStorage(t)
	chunks, err := store.ListChunks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if chunks == nil || len(chunks) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", chunks)
	}
}

func TestSQLiteStorage_Feedback(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	older := &models.Feedback{MessageID: "m1", Query: "¿qué es?", Useful: true, CreatedAt: base}
	newer := &models.Feedback{MessageID: "m2", Useful: false, Comment: "incompleta", CreatedAt: base.Add(time.Hour)}
	for _, fb := range []*models.Feedback{older, newer} {
		if err := store.CreateFeedback(ctx, fb); err != nil {
			t.Fatal(err)
		}
		if fb.ID == "" {
			t.Error("feedback id should be assigned")
		}
	}
	if older.ID == newer.ID {
		t.Error("feedback ids should be unique")
	}

	list, err := store.ListFeedback(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d entries", len(list))
	}
	if list[0].MessageID != "m2" || list[0].Comment != "incompleta" || list[0].Useful {
		t.Errorf("newest first: got %+v", list[0])
	}
	if list[1].Query != "¿qué es?" || !list[1].Useful {
		t.Errorf("older entry: got %+v", list[1])
	}

	limited, err := store.ListFeedback(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limit not applied: %d %v", len(limited), err)
	}
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.ReplaceCorpus(ctx, &models.CorpusInfo{SnapshotID: "m"}, []models.Chunk{{ID: 0, Text: "x"}}); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountChunks(ctx); n != 1 {
		t.Errorf("CountChunks = %d", n)
	}
}
