package vector

import (
	"math"
	"sort"
)

const maxDistance = math.MaxFloat32

// Normalize returns a unit-length copy of x. The zero vector is returned unchanged.
func Normalize(x []float32) []float32 {
	out := make([]float32, len(x))
	copy(out, x)
	n := L2Norm(x)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / n)
	}
	return out
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// Similarity converts a squared L2 distance between unit vectors to cosine similarity.
func Similarity(distance float32) float64 {
	return 1 - float64(distance)/2
}

// finish sorts neighbors ascending by distance, truncates to k and pads with NoNeighbor.
func finish(neighbors []Neighbor, k int) []Neighbor {
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	for len(neighbors) < k {
		neighbors = append(neighbors, NoNeighbor)
	}
	return neighbors
}

func checkDims(vectors [][]float32, dimensions int) error {
	for i, v := range vectors {
		if len(v) != dimensions {
			return dimensionError("vector", i, len(v), dimensions)
		}
	}
	return nil
}
