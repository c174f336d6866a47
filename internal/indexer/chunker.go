// Package indexer chunks extracted document text and builds corpus snapshots.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into overlapping character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// It returns ErrInvalidParameters unless 0 < overlap < size.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkOverlap <= 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must satisfy 0 < overlap < size (got size=%d, overlap=%d)",
			models.ErrInvalidParameters, chunkSize, chunkOverlap)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Chunk splits text into windows of chunkSize runes, each starting
// chunkSize-chunkOverlap runes after the previous one. Ids are dense and zero-based.
func (c *Chunker) Chunk(text string) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return []models.Chunk{}
	}
	step := c.chunkSize - c.chunkOverlap
	chunks := make([]models.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		chunks = append(chunks, models.Chunk{
			ID:        len(chunks),
			Text:      window,
			WordCount: len(strings.Fields(window)),
		})
	}
	return chunks
}

// Chunk is a convenience wrapper around NewChunker(size, overlap).Chunk(text).
func Chunk(text string, size, overlap int) ([]models.Chunk, error) {
	c, err := NewChunker(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}

// TextLength returns the length of text in runes.
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}
