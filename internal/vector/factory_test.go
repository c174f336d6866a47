package vector

import (
	"context"
	"testing"
)

func TestNewVectorIndex(t *testing.T) {
	for _, typ := range []string{"memory", "", "chromem"} {
		idx, err := NewVectorIndex(typ, 3, Options{})
		if err != nil {
			t.Fatalf("NewVectorIndex(%q): %v", typ, err)
		}
		if err := idx.Add(context.Background(), [][]float32{{1, 0, 0}}); err != nil {
			t.Fatalf("%q Add: %v", typ, err)
		}
		if idx.Size() != 1 {
			t.Errorf("%q Size=%d, want 1", typ, idx.Size())
		}
		if idx.Dimensions() != 3 {
			t.Errorf("%q Dimensions=%d, want 3", typ, idx.Dimensions())
		}
		_ = idx.Close()
	}
}

func TestNewVectorIndex_Unknown(t *testing.T) {
	if _, err := NewVectorIndex("unknown", 3, Options{}); err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestNewVectorIndex_InvalidDimension(t *testing.T) {
	if _, err := NewVectorIndex("memory", 0, Options{}); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestNewVectorIndex_QdrantNeedsAddress(t *testing.T) {
	if _, err := NewVectorIndex("qdrant", 3, Options{}); err == nil {
		t.Error("expected error for qdrant without address")
	}
}

func TestNewVectorIndex_QdrantCollectionPrefix(t *testing.T) {
	idx, err := NewVectorIndex("qdrant", 3, Options{QdrantAddress: "localhost:6334", QdrantCollection: "book"})
	if err != nil {
		t.Fatalf("NewVectorIndex(qdrant): %v", err)
	}
	defer idx.Close()
	q := idx.(*QdrantIndex)
	if len(q.Collection()) != len("book_")+8 {
		t.Errorf("unexpected collection name %q", q.Collection())
	}
	if idx.Size() != 0 {
		t.Errorf("new qdrant index should be empty")
	}
}

func TestNewVectorIndex_FAISS(t *testing.T) {
	if !IsFAISSAvailable() {
		t.Skip("FAISS not available (build with -tags=faiss)")
	}
	idx, err := NewVectorIndex("faiss", 3, Options{})
	if err != nil {
		t.Fatalf("NewVectorIndex(faiss): %v", err)
	}
	defer idx.Close()
	if err := idx.Add(context.Background(), [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
}
