package qa

import (
	"math"
	"unicode"

	"github.com/hyperjump/kotae/internal/embedding"
)

// encoding is a question/passage pair laid out as
// [CLS] question [SEP] passage [SEP] with one token per word.
type encoding struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	// passage words occupy token positions [first, first+len(spans)).
	first int
	spans [][2]int
}

func encodePair(question, passage string, maxTokens int) encoding {
	enc := encoding{
		inputIDs:      make([]int64, maxTokens),
		attentionMask: make([]int64, maxTokens),
		tokenTypeIDs:  make([]int64, maxTokens),
	}
	pos := 0
	put := func(id, typ int64) {
		enc.inputIDs[pos] = id
		enc.attentionMask[pos] = 1
		enc.tokenTypeIDs[pos] = typ
		pos++
	}

	put(embedding.TokenCLS, 0)
	for _, w := range embedding.SplitWords(question) {
		// leave room for [SEP], one passage word and the final [SEP]
		if pos >= maxTokens-3 {
			break
		}
		put(embedding.WordID(w), 0)
	}
	put(embedding.TokenSEP, 0)

	enc.first = pos
	for _, sp := range wordSpans(passage) {
		if pos >= maxTokens-1 {
			break
		}
		put(embedding.WordID(passage[sp[0]:sp[1]]), 1)
		enc.spans = append(enc.spans, sp)
	}
	put(embedding.TokenSEP, 1)
	return enc
}

// wordSpans returns the byte offsets of each word in text, using the same
// word definition as embedding.SplitWords.
func wordSpans(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range text {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			spans = append(spans, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

// bestSpan picks the passage token range [s, e] maximizing
// P(start=s) * P(end=e) with e-s < maxLen, where the probabilities are a
// softmax over the passage positions [first, first+n).
func bestSpan(startLogits, endLogits []float32, first, n, maxLen int) (s, e int, score float64) {
	if n <= 0 {
		return -1, -1, 0
	}
	ps := softmax(startLogits[first : first+n])
	pe := softmax(endLogits[first : first+n])
	s, e = -1, -1
	for i := 0; i < n; i++ {
		for j := i; j < n && j-i < maxLen; j++ {
			if p := ps[i] * pe[j]; p > score {
				s, e, score = i, j, p
			}
		}
	}
	return s, e, score
}

func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
