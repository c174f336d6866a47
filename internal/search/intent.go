package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Intent is the classified purpose of a query.
type Intent int

const (
	IntentSearch Intent = iota
	IntentGreeting
	IntentFarewell
	IntentThanks
	IntentPositiveFeedback
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentFarewell:
		return "farewell"
	case IntentThanks:
		return "thanks"
	case IntentPositiveFeedback:
		return "positive_feedback"
	default:
		return "search"
	}
}

// IsSocial reports whether the intent short-circuits retrieval.
func (i Intent) IsSocial() bool {
	return i != IntentSearch
}

var intentPhrases = []struct {
	intent  Intent
	phrases []string
}{
	{IntentGreeting, []string{"hola", "buenos días", "buenas tardes", "saludos"}},
	{IntentFarewell, []string{"adiós", "chao", "hasta luego", "nos vemos", "finalizar"}},
	{IntentThanks, []string{"gracias", "muchas gracias", "agradezco"}},
	{IntentPositiveFeedback, []string{"está bien", "perfecto", "correcto", "entendido", "buena información"}},
}

var socialReplies = map[Intent]string{
	IntentGreeting:         "¡Hola! Soy tu asistente académico. Estoy listo para ayudarte a encontrar información en el libro de Inteligencia Artificial. ¿Qué te gustaría consultar hoy?",
	IntentFarewell:         "¡De nada! Espero que la información te haya sido útil. Estaré aquí si tienes más preguntas sobre el libro. ¡Hasta luego!",
	IntentThanks:           "¡Es un placer ayudarte! ¿Hay algún otro concepto del libro que desees que analice para ti?",
	IntentPositiveFeedback: "Me alegra que la información sea correcta y útil. ¿Necesitas profundizar en algún otro detalle del texto?",
}

// Classify matches whole words and phrases of the query against the social
// categories in order; the first match wins. Anything else is IntentSearch.
func Classify(query string) Intent {
	padded := " " + normalizeWords(query) + " "
	for _, group := range intentPhrases {
		for _, phrase := range group.phrases {
			if strings.Contains(padded, " "+phrase+" ") {
				return group.intent
			}
		}
	}
	return IntentSearch
}

// SocialReply returns the canned reply for a social intent.
func SocialReply(i Intent) string {
	return socialReplies[i]
}

// normalizeWords composes s to NFC, lower-cases it and reduces it to letter/digit words separated by single spaces.
func normalizeWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(norm.NFC.String(strings.TrimSpace(s))) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
