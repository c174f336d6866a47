package vector

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(L2Norm(v)-1) > 1e-6 {
		t.Errorf("norm = %f, want 1", L2Norm(v))
	}
	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should stay zero, got %v", zero)
	}
	orig := []float32{3, 4}
	_ = Normalize(orig)
	if orig[0] != 3 {
		t.Error("Normalize should not modify its input")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
	}
	for _, tt := range tests {
		got := Similarity(SquaredL2(tt.a, tt.b))
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("Similarity(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
