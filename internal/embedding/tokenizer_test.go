package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("red neuronal", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != TokenCLS || ids[3] != TokenSEP {
		t.Errorf("expected [CLS] w w [SEP], got %v", ids[:4])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask should cover 4 tokens, got %v", attn)
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, _, _ := tok.Tokenize("uno dos tres cuatro cinco", 4)
	if ids[0] != TokenCLS || ids[3] != TokenSEP {
		t.Errorf("expected [CLS] w w [SEP], got %v", ids)
	}
}

func TestWordID_caseInsensitive(t *testing.T) {
	if WordID("Neurona") != WordID("neurona") {
		t.Error("WordID should ignore case")
	}
	if id := WordID("neurona"); id < 1000 || id >= vocabSize {
		t.Errorf("WordID out of range: %d", id)
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  ¿Qué es   una red-neuronal?  ")
	want := []string{"Qué", "es", "una", "red", "neuronal"}
	if len(words) != len(want) {
		t.Fatalf("got %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, words[i], want[i])
		}
	}
	if len(SplitWords("")) != 0 {
		t.Error("empty string should have no words")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("una frase bastante larga para desbordar el acumulador") < 0 {
		t.Error("hash should be non-negative")
	}
}
