package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

var engineChunks = []models.Chunk{
	{ID: 0, Text: "el aprendizaje supervisado usa ejemplos etiquetados", WordCount: 6},
	{ID: 1, Text: "las redes neuronales aprenden representaciones", WordCount: 5},
	{ID: 2, Text: "la búsqueda heurística explora estados", WordCount: 5},
}

func retrievalDefaults() config.RetrievalConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Retrieval
}

func newKeywordIndex(t *testing.T, chunks []models.Chunk) *keyword.BleveIndex {
	t.Helper()
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	passages := make([]keyword.Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = keyword.Passage{ChunkID: c.ID, Text: c.Text}
	}
	if err := kw.IndexChunks(context.Background(), passages); err != nil {
		t.Fatal(err)
	}
	return kw
}

func newTestEngine(t *testing.T, snap *corpus.Snapshot, reader qa.Reader, emb embedding.Embedder) (*Engine, *corpus.Holder) {
	t.Helper()
	holder := corpus.NewHolder(corpus.WithLogger(zap.NewNop()))
	t.Cleanup(func() { _ = holder.Close() })
	if snap != nil {
		holder.Swap(snap)
	}
	rc := retrievalDefaults()
	if emb == nil {
		emb = embedding.NewMockEmbedder(8)
	}
	r := NewRetriever(emb, reader, NewCleaner(nil), PolicyFromConfig(rc, config.QAConfig{Workers: 2}), zap.NewNop())
	return NewEngine(holder, r, rc, WithLogger(zap.NewNop())), holder
}

func TestEngine_SocialWithoutCorpus(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil, nil)
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "¡Hola!"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != SocialReply(IntentGreeting) || resp.Intent != "greeting" {
		t.Errorf("unexpected social answer: %+v", resp)
	}
	if !resp.FoundResults || resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("social replies are found with empty results, got %+v", resp)
	}
	if resp.TopKRequested != 3 || resp.ThresholdUsed != 0.1 {
		t.Errorf("defaults not echoed: top_k=%d threshold=%v", resp.TopKRequested, resp.ThresholdUsed)
	}
}

func TestEngine_SocialIgnoresInvalidKnobs(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil, nil)
	bad := 5.0
	tests := []struct {
		name      string
		query     models.SearchQuery
		wantTopK  int
		wantThres float64
	}{
		{"negative top_k", models.SearchQuery{Query: "hola", TopK: -1}, 3, 0.1},
		{"threshold out of range", models.SearchQuery{Query: "gracias", Threshold: &bad}, 3, 0.1},
		{"valid knobs echoed", models.SearchQuery{Query: "adiós", TopK: 5}, 5, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			resp, err := e.Search(context.Background(), &q)
			if err != nil {
				t.Fatalf("social query should always be answered: %v", err)
			}
			if resp.Intent == "search" || resp.Answer == "" {
				t.Errorf("expected a social reply, got %+v", resp)
			}
			if resp.TopKRequested != tt.wantTopK || resp.ThresholdUsed != tt.wantThres {
				t.Errorf("top_k=%d threshold=%v, want %d %v", resp.TopKRequested, resp.ThresholdUsed, tt.wantTopK, tt.wantThres)
			}
		})
	}
}

func TestEngine_NoCorpus(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil, nil)
	_, err := e.Search(context.Background(), &models.SearchQuery{Query: "¿qué es una neurona?"})
	if !errors.Is(err, models.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestEngine_InvalidQuery(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil, nil)
	_, err := e.Search(context.Background(), &models.SearchQuery{Query: "  "})
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestEngine_SpanAnswer(t *testing.T) {
	reader := &scriptedReader{answers: map[string]qa.Answer{
		"pasaje cero sobre redes": {Text: "Una Red De Neuronas", Score: 0.7},
	}}
	e, _ := newTestEngine(t, testSnapshot(&stubIndex{neighbors: bookNeighbors}), reader, nil)
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "¿qué es una red?"})
	if err != nil {
		t.Fatal(err)
	}
	want := "De acuerdo con el texto, se define esencialmente como una red de neuronas. ¿Esta información aclara tu duda o necesitas que busque más detalles?"
	if resp.Answer != want {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if !resp.FoundResults || len(resp.Results) != 3 || resp.Intent != "search" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Suggestions != nil {
		t.Errorf("no suggestions expected when results were found, got %v", resp.Suggestions)
	}
}

func TestEngine_NotFoundSuggestsCorrections(t *testing.T) {
	snap := &corpus.Snapshot{
		Chunks:   engineChunks,
		Index:    &stubIndex{neighbors: []vector.Neighbor{{Index: 0, Distance: 1.9}}},
		Keywords: newKeywordIndex(t, engineChunks),
	}
	e, _ := newTestEngine(t, snap, nil, nil)
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "aprendizje supervisado"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FoundResults || len(resp.Results) != 0 {
		t.Errorf("expected nothing found, got %+v", resp.Results)
	}
	if resp.Answer != notFoundAnswer {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Suggestions) == 0 || resp.Suggestions[0] != "aprendizaje supervisado" {
		t.Errorf("Suggestions = %v", resp.Suggestions)
	}
}

func TestEngine_MemoryIndexExactMatch(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewMockEmbedder(64)
	idx, err := vector.NewMemoryIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	texts := make([]string, len(engineChunks))
	for i, c := range engineChunks {
		texts[i] = c.Text
	}
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, &corpus.Snapshot{Chunks: engineChunks, Index: idx}, nil, emb)

	resp, err := e.Search(ctx, &models.SearchQuery{Query: engineChunks[1].Text, TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID != 1 {
		t.Fatalf("expected chunk 1 first, got %+v", resp.Results)
	}
	if math.Abs(resp.Results[0].SimilarityPercent-100) > 0.01 {
		t.Errorf("identical text should be ~100%% similar, got %v", resp.Results[0].SimilarityPercent)
	}
	if !strings.HasPrefix(resp.Answer, "El libro no ofrece una definición corta") {
		t.Errorf("without a reader the answer should quote the top passage, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, engineChunks[1].Text) {
		t.Errorf("answer should quote chunk 1: %q", resp.Answer)
	}
}

func TestEngine_Passages(t *testing.T) {
	snap := &corpus.Snapshot{
		Chunks:   engineChunks,
		Index:    &stubIndex{},
		Keywords: newKeywordIndex(t, engineChunks),
	}
	e, _ := newTestEngine(t, snap, nil, nil)
	ctx := context.Background()

	hits, err := e.Passages(ctx, "supervisado", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Chunk.ID != 0 || hits[0].Source != "Pág. 1" {
		t.Errorf("Passages = %+v", hits)
	}

	fuzzy, err := e.Passages(ctx, "supervisadp", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) != 1 || fuzzy[0].Chunk.ID != 0 {
		t.Errorf("fuzzy fallback should find chunk 0, got %+v", fuzzy)
	}

	if _, err := e.Passages(ctx, "", 5); !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}
}
