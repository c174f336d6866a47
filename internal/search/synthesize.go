package search

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	followUpQuestion = " ¿Esta información aclara tu duda o necesitas que busque más detalles?"
	notFoundAnswer   = "Lo siento, no encontré información relevante en el libro para esa consulta. ¿Podrías intentar reformular tu pregunta?"
)

// Synthesizer turns QA spans, or failing that the top passage, into one answer.
type Synthesizer struct {
	MaxSpans      int
	ExcerptLength int
}

// Synthesize builds the answer text. It is deterministic.
func (s Synthesizer) Synthesize(spans []string, results []*models.SearchResult) string {
	if len(spans) > 0 {
		if s.MaxSpans > 0 && len(spans) > s.MaxSpans {
			spans = spans[:s.MaxSpans]
		}
		lower := make([]string, len(spans))
		for i, span := range spans {
			lower[i] = strings.ToLower(span)
		}
		var answer string
		switch len(lower) {
		case 1:
			answer = fmt.Sprintf("De acuerdo con el texto, se define esencialmente como %s.", lower[0])
		case 2:
			answer = fmt.Sprintf("El libro explica que este concepto abarca %s, integrándose además con %s.", lower[0], lower[1])
		default:
			answer = fmt.Sprintf("Al analizar el contenido, se observa que el tema se fundamenta en %s, se complementa con %s y se vincula a %s.",
				lower[0], lower[1], lower[2])
		}
		return capitalize(answer) + followUpQuestion
	}
	if len(results) > 0 {
		return fmt.Sprintf("El libro no ofrece una definición corta, pero analiza el tema en estos términos: \"%s...\" ¿Deseas que intente buscar en otra sección?",
			Excerpt(results[0].Text, s.ExcerptLength))
	}
	return notFoundAnswer
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
