// Package search answers questions against the active corpus: intent
// detection, retrieval, extractive reading and answer synthesis.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Engine is the question-answering entry point.
type Engine struct {
	holder         *corpus.Holder
	retriever      *Retriever
	synth          Synthesizer
	defaults       models.QueryDefaults
	maxSuggestions int
	logger         *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine that reads snapshots from holder.
func NewEngine(holder *corpus.Holder, retriever *Retriever, cfg config.RetrievalConfig, opts ...Option) *Engine {
	e := &Engine{
		holder:         holder,
		retriever:      retriever,
		synth:          Synthesizer{MaxSpans: cfg.MaxSpans, ExcerptLength: cfg.ExcerptLength},
		defaults:       cfg.QueryDefaults(),
		maxSuggestions: cfg.MaxSuggestions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults returns the values applied to unset query fields.
func (e *Engine) Defaults() models.QueryDefaults {
	return e.defaults
}

// Search classifies the query and either returns a canned social reply or
// retrieves passages and synthesizes an answer. Without a loaded corpus it
// fails with models.ErrServiceUnavailable.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SynthesizedAnswer, error) {
	startTime := time.Now()
	// Social messages are answered whatever retrieval knobs came with them.
	if intent := Classify(query.Query); intent.IsSocial() {
		knobs := *query
		if knobs.Validate(e.defaults) != nil {
			knobs = models.SearchQuery{Query: knobs.Query, TopK: e.defaults.TopK, Threshold: &e.defaults.Threshold}
		}
		return &models.SynthesizedAnswer{
			Query:         strings.TrimSpace(query.Query),
			Answer:        SocialReply(intent),
			Intent:        intent.String(),
			Results:       []*models.SearchResult{},
			FoundResults:  true,
			TopKRequested: knobs.TopK,
			ThresholdUsed: knobs.ThresholdValue(),
			QueryTime:     time.Since(startTime).Milliseconds(),
		}, nil
	}
	if err := query.Validate(e.defaults); err != nil {
		return nil, err
	}
	resp := &models.SynthesizedAnswer{
		Query:         query.Query,
		Intent:        IntentSearch.String(),
		Results:       []*models.SearchResult{},
		TopKRequested: query.TopK,
		ThresholdUsed: query.ThresholdValue(),
	}

	snap, release, err := e.holder.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ret, err := e.retriever.Retrieve(ctx, snap, query.Query, query.TopK, query.ThresholdValue())
	if err != nil {
		return nil, err
	}
	resp.Results = ret.Results
	resp.FoundResults = ret.Found
	resp.Answer = e.synth.Synthesize(ret.Spans, ret.Results)
	if !ret.Found {
		resp.Suggestions = e.suggest(snap, query.Query)
	}
	resp.QueryTime = time.Since(startTime).Milliseconds()

	if e.logger != nil {
		e.logger.Debug("search",
			zap.String("query", query.Query),
			zap.Int64("generation", snap.Generation),
			zap.Int("results", len(resp.Results)),
			zap.Int("spans", len(ret.Spans)),
			zap.Int64("ms", resp.QueryTime))
	}
	return resp, nil
}

func (e *Engine) suggest(snap *corpus.Snapshot, query string) []string {
	if snap.Keywords == nil || e.maxSuggestions <= 0 {
		return nil
	}
	return keyword.NewSpellChecker(snap.Keywords).SuggestQueries(query, e.maxSuggestions)
}

// Passage is a keyword hit with its chunk.
type Passage struct {
	Chunk  models.Chunk `json:"chunk"`
	Source string       `json:"source"`
	Score  float64      `json:"score"`
}

// Passages runs a keyword match over the chunk texts of the active snapshot,
// retrying with fuzzy matching when nothing matches exactly.
func (e *Engine) Passages(ctx context.Context, q string, limit int) ([]*Passage, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: q cannot be empty", models.ErrInvalidParameters)
	}
	snap, release, err := e.holder.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	if snap.Keywords == nil {
		return []*Passage{}, nil
	}

	if limit <= 0 {
		limit = 10
	}
	hits, err := snap.Keywords.Search(ctx, q, limit, nil)
	if err == nil && len(hits) == 0 {
		// misspelled terms still match their neighbours within one edit
		hits, err = snap.Keywords.Search(ctx, q, limit, &keyword.SearchOptions{Fuzziness: 1})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %v", models.ErrRetrieval, err)
	}
	out := make([]*Passage, 0, len(hits))
	for _, h := range hits {
		chunk, ok := snap.Chunk(h.ChunkID)
		if !ok {
			continue
		}
		out = append(out, &Passage{
			Chunk:  chunk,
			Source: PageLabel(chunk.ID, e.retriever.policy.ChunksPerPage),
			Score:  h.Score,
		})
	}
	return out, nil
}
