package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func TestChromemIndex_AddSearch(t *testing.T) {
	idx, err := NewChromemIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Fatalf("Size=%d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{0, 1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results including padding, got %d", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("top result should be row 1, got %+v", results[0])
	}
	if math.Abs(float64(results[0].Distance)) > 1e-5 {
		t.Errorf("distance to identical vector should be 0, got %f", results[0].Distance)
	}
	if math.Abs(float64(results[1].Distance)-2) > 1e-5 {
		t.Errorf("distance to orthogonal unit vector should be 2, got %f", results[1].Distance)
	}
	if results[3].Index != -1 || results[4].Index != -1 {
		t.Errorf("expected padding, got %v", results[3:])
	}
}

func TestChromemIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors")

	idx, _ := NewChromemIndex(2)
	if err := idx.Add(ctx, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	idx2, _ := NewChromemIndex(2)
	if err := idx2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx2.Size() != 2 {
		t.Errorf("after Load size=%d, want 2", idx2.Size())
	}
}
