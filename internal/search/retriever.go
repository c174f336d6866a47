package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Policy holds the retrieval tunables.
type Policy struct {
	OverFetch     int
	QAMinScore    float64
	MinSpanLength int
	ChunksPerPage int
	// Workers bounds concurrent QA calls; 1 reads candidates sequentially.
	Workers int
}

// PolicyFromConfig builds a Policy from the retrieval and QA settings.
func PolicyFromConfig(r config.RetrievalConfig, q config.QAConfig) Policy {
	return Policy{
		OverFetch:     r.OverFetch,
		QAMinScore:    r.QAMinScore,
		MinSpanLength: r.MinSpanLength,
		ChunksPerPage: r.ChunksPerPage,
		Workers:       q.Workers,
	}
}

// Retrieval is the outcome of one retrieve call.
type Retrieval struct {
	// Results are ranked and truncated to top_k.
	Results []*models.SearchResult
	// Spans are the accepted, deduplicated QA spans in candidate order.
	Spans []string
	// Found is true when at least one candidate cleared the threshold.
	Found bool
}

type candidate struct {
	chunk      models.Chunk
	similarity float64
	cleaned    string
}

// spanOutcome is the reader's verdict on one candidate: a span with its
// score, or the error that prevented one.
type spanOutcome struct {
	span  string
	score float64
	err   error
}

func (o spanOutcome) accepted(p Policy) bool {
	return o.err == nil && o.score > p.QAMinScore &&
		utf8.RuneCountInString(strings.TrimSpace(o.span)) > p.MinSpanLength
}

// Retriever finds the chunks nearest to a query and extracts answer spans from them.
type Retriever struct {
	embedder embedding.Embedder
	reader   qa.Reader
	cleaner  *Cleaner
	policy   Policy
	logger   *zap.Logger
}

// NewRetriever creates a retriever. reader may be nil, in which case no spans are produced.
func NewRetriever(embedder embedding.Embedder, reader qa.Reader, cleaner *Cleaner, policy Policy, logger *zap.Logger) *Retriever {
	if policy.Workers < 1 {
		policy.Workers = 1
	}
	if policy.ChunksPerPage < 1 {
		policy.ChunksPerPage = 1
	}
	return &Retriever{
		embedder: embedder,
		reader:   reader,
		cleaner:  cleaner,
		policy:   policy,
		logger:   logger,
	}
}

// Retrieve runs the query against snap. Embedding and index failures wrap
// models.ErrRetrieval; reader failures only cost that candidate its span.
func (r *Retriever) Retrieve(ctx context.Context, snap *corpus.Snapshot, query string, topK int, threshold float64) (*Retrieval, error) {
	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", models.ErrRetrieval, err)
	}
	neighbors, err := snap.Index.Search(ctx, vector.Normalize(qv), r.policy.OverFetch)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", models.ErrRetrieval, err)
	}

	candidates := make([]candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Index < 0 {
			continue
		}
		s := vector.Similarity(n.Distance)
		if s < threshold {
			continue
		}
		chunk, ok := snap.Chunk(n.Index)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{
			chunk:      chunk,
			similarity: s,
			cleaned:    r.cleaner.Clean(chunk.Text),
		})
	}

	out := &Retrieval{Found: len(candidates) > 0}
	out.Spans = r.collectSpans(r.readSpans(ctx, query, candidates))

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if topK >= 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out.Results = make([]*models.SearchResult, 0, len(candidates))
	for i, c := range candidates {
		out.Results = append(out.Results, &models.SearchResult{
			ChunkID:           c.chunk.ID,
			Text:              c.cleaned,
			Similarity:        c.similarity,
			SimilarityPercent: round2(c.similarity * 100),
			WordCount:         c.chunk.WordCount,
			Source:            PageLabel(c.chunk.ID, r.policy.ChunksPerPage),
			Rank:              i + 1,
		})
	}
	return out, nil
}

// readSpans asks the reader about every candidate. Outcomes are stored by
// candidate position regardless of completion order.
func (r *Retriever) readSpans(ctx context.Context, query string, candidates []candidate) []spanOutcome {
	if r.reader == nil || len(candidates) == 0 {
		return nil
	}
	outcomes := make([]spanOutcome, len(candidates))
	read := func(i int) {
		ans, err := r.reader.Answer(ctx, query, candidates[i].cleaned)
		outcomes[i] = spanOutcome{span: ans.Text, score: ans.Score, err: err}
	}

	if r.policy.Workers == 1 {
		for i := range candidates {
			read(i)
		}
		return outcomes
	}
	var g errgroup.Group
	g.SetLimit(r.policy.Workers)
	for i := range candidates {
		g.Go(func() error {
			read(i)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (r *Retriever) collectSpans(outcomes []spanOutcome) []string {
	var spans []string
	seen := make(map[string]struct{})
	for i, o := range outcomes {
		if o.err != nil {
			if r.logger != nil {
				r.logger.Debug("qa reader gave no span", zap.Int("candidate", i), zap.Error(o.err))
			}
			continue
		}
		if !o.accepted(r.policy) {
			continue
		}
		span := strings.TrimSpace(o.span)
		key := strings.ToLower(span)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		spans = append(spans, span)
	}
	return spans
}

// PageLabel approximates the page a chunk came from.
func PageLabel(chunkID, chunksPerPage int) string {
	if chunksPerPage < 1 {
		chunksPerPage = 1
	}
	return fmt.Sprintf("Pág. %d", chunkID/chunksPerPage+1)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
