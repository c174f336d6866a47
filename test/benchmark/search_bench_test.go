package benchmark

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/vector"
)

const paragraph = "El descenso por gradiente ajusta los parámetros del modelo en la dirección opuesta a la derivada de la pérdida. "

func BenchmarkChunk(b *testing.B) {
	text := strings.Repeat(paragraph, 500)
	c, err := indexer.NewChunker(1000, 200)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text)
	}
}

func BenchmarkClean(b *testing.B) {
	c := search.NewCleaner([]string{"FUNDAMENTOS DE LA"})
	text := "FUNDAMENTOS DE LA INTELIGENCIA ARTIFICIAL 12 " + strings.Repeat(paragraph, 8) + " ISBN 978-84-0000-000-0"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Clean(text)
	}
}

func BenchmarkClassify(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = search.Classify("¿Qué es el descenso por gradiente y para qué sirve?")
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	for i := range vecs {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
		vecs[i][1] = 1
		vecs[i] = vector.Normalize(vecs[i])
	}
	_ = idx.Add(ctx, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "¿qué es una red neuronal convolucional?")
	}
}
