package keyword

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

const textField = "text"

// BleveIndex implements PassageIndex and TermDictionary over one corpus snapshot.
type BleveIndex struct {
	index bleve.Index
	path  string

	termsOnce sync.Once
	terms     map[string]int
	termsErr  error
}

// NewBleveIndex creates a fresh index at path, or in memory when path is empty.
// An existing directory at path is removed first; snapshots never share an index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps dictionary terms
	// as real words, which spelling suggestions depend on.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(textField, textFieldMapping)
	im.DefaultMapping = docMapping

	var (
		index bleve.Index
		err   error
	)
	if path == "" {
		index, err = bleve.NewMemOnly(im)
	} else {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, fmt.Errorf("failed to clear Bleve index dir: %w", rmErr)
		}
		index, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index, path: path}, nil
}

// IndexChunks adds passages in one batch.
func (b *BleveIndex) IndexChunks(ctx context.Context, passages []Passage) error {
	batch := b.index.NewBatch()
	for _, p := range passages {
		if err := batch.Index(strconv.Itoa(p.ChunkID), map[string]interface{}{textField: p.Text}); err != nil {
			return fmt.Errorf("failed to batch chunk %d: %w", p.ChunkID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

// Search runs a match query over chunk text and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*PassageHit, error) {
	var q blevequery.Query
	if opts != nil && opts.Fuzziness > 0 {
		q = buildFuzzyQuery(query, opts.Fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(textField)
		q = mq
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*PassageHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, &PassageHit{ChunkID: id, Score: hit.Score})
	}
	return out, nil
}

// buildFuzzyQuery ORs one fuzzy query per query term.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(textField)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(textField)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// Path returns the index directory, or "" for an in-memory index.
func (b *BleveIndex) Path() string {
	return b.path
}

// Remove closes the index and deletes its directory.
func (b *BleveIndex) Remove() error {
	err := b.Close()
	if b.path != "" {
		if rmErr := os.RemoveAll(b.path); rmErr != nil {
			return errors.Join(err, rmErr)
		}
	}
	return err
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// loadTerms reads the text field dictionary once; the index is immutable after ingestion.
func (b *BleveIndex) loadTerms() (map[string]int, error) {
	b.termsOnce.Do(func() {
		dict, err := b.index.FieldDict(textField)
		if err != nil {
			b.termsErr = fmt.Errorf("failed to read term dictionary: %w", err)
			return
		}
		defer dict.Close()
		terms := make(map[string]int)
		for {
			entry, err := dict.Next()
			if err != nil {
				b.termsErr = fmt.Errorf("failed to read term dictionary: %w", err)
				return
			}
			if entry == nil {
				break
			}
			terms[entry.Term] = int(entry.Count)
		}
		b.terms = terms
	})
	return b.terms, b.termsErr
}

// GetAllTerms returns all unique terms of the chunk text.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	terms, err := b.loadTerms()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(terms))
	for t := range terms {
		out = append(out, t)
	}
	return out, nil
}

// GetTermFrequency returns the number of chunks containing term.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	terms, err := b.loadTerms()
	if err != nil {
		return 0, err
	}
	return terms[term], nil
}

// ContainsTerm checks if a term exists in the index.
func (b *BleveIndex) ContainsTerm(term string) (bool, error) {
	freq, err := b.GetTermFrequency(term)
	if err != nil {
		return false, err
	}
	return freq > 0, nil
}
