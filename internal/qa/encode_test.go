package qa

import (
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
)

func TestWordSpans(t *testing.T) {
	text := "La neurona, básica."
	spans := wordSpans(text)
	want := []string{"La", "neurona", "básica"}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans", len(spans))
	}
	for i, sp := range spans {
		if got := text[sp[0]:sp[1]]; got != want[i] {
			t.Errorf("span %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestEncodePair(t *testing.T) {
	enc := encodePair("¿qué es?", "una neurona artificial", 16)
	if enc.inputIDs[0] != embedding.TokenCLS {
		t.Errorf("first token = %d", enc.inputIDs[0])
	}
	// [CLS] qué es [SEP] una neurona artificial [SEP]
	if enc.first != 4 || len(enc.spans) != 3 {
		t.Fatalf("first = %d, spans = %d", enc.first, len(enc.spans))
	}
	if enc.inputIDs[3] != embedding.TokenSEP || enc.inputIDs[7] != embedding.TokenSEP {
		t.Errorf("separators misplaced: %v", enc.inputIDs[:8])
	}
	if enc.tokenTypeIDs[2] != 0 || enc.tokenTypeIDs[4] != 1 {
		t.Errorf("token types: %v", enc.tokenTypeIDs[:8])
	}
	if enc.attentionMask[7] != 1 || enc.attentionMask[8] != 0 {
		t.Errorf("attention mask: %v", enc.attentionMask)
	}
}

func TestEncodePair_TruncatesPassage(t *testing.T) {
	enc := encodePair("q", "a b c d e f g h", 8)
	// [CLS] q [SEP] a b c d [SEP]
	if len(enc.spans) != 4 || enc.inputIDs[7] != embedding.TokenSEP {
		t.Errorf("spans = %d, ids = %v", len(enc.spans), enc.inputIDs)
	}
}

func TestBestSpan(t *testing.T) {
	//           CLS  q   SEP  w0  w1  w2  w3
	start := []float32{9, 9, 9, 0, 5, 0, 0}
	end := []float32{9, 9, 9, 0, 0, 0, 5}
	s, e, score := bestSpan(start, end, 3, 4, 10)
	if s != 1 || e != 3 {
		t.Errorf("span = [%d,%d], want [1,3]", s, e)
	}
	if score <= 0.5 || score > 1 {
		t.Errorf("score = %f", score)
	}

	// end before start is never chosen and length is bounded
	s, e, _ = bestSpan(start, end, 3, 4, 2)
	if e < s || e-s >= 2 {
		t.Errorf("span = [%d,%d] violates bounds", s, e)
	}
}

func TestBestSpan_Empty(t *testing.T) {
	if s, _, _ := bestSpan(nil, nil, 0, 0, 5); s != -1 {
		t.Errorf("expected no span, got %d", s)
	}
}

func TestSoftmax(t *testing.T) {
	p := softmax([]float32{1, 1, 1, 1})
	for _, v := range p {
		if math.Abs(v-0.25) > 1e-9 {
			t.Errorf("uniform logits should give 0.25, got %v", p)
		}
	}
}
