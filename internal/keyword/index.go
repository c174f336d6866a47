// Package keyword indexes chunk text with bleve for passage lookup and
// spelling suggestions.
package keyword

import "context"

// PassageIndex finds chunks by their words.
type PassageIndex interface {
	IndexChunks(ctx context.Context, chunks []Passage) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*PassageHit, error)
	DocCount() (uint64, error)
	Close() error
}

// Passage is one chunk as indexed.
type Passage struct {
	ChunkID int
	Text    string
}

// SearchOptions optional parameters for passage search. Nil means exact term matching.
type SearchOptions struct {
	// Fuzziness enables typo-tolerant matching with the given edit distance (1 or 2).
	Fuzziness int
}

// PassageHit is a single keyword search hit.
type PassageHit struct {
	ChunkID int
	Score   float64
}

// TermDictionary provides access to the term dictionary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the number of chunks containing the term.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term exists in the index.
	ContainsTerm(term string) (bool, error)
}
