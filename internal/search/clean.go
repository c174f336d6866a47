package search

import (
	"regexp"
	"strings"
)

var (
	splitWordRe   = regexp.MustCompile(`([\p{L}\p{N}_]+)[-—]\s*([\p{L}\p{N}_]+)`)
	digitRunRe    = regexp.MustCompile(`[-\d\s]{8,}`)
	isbnRe        = regexp.MustCompile(`(?i)ISBN[\s\p{L}\p{N}_-]*[:\s]*[\d\s-]{10,}`)
	figureRe      = regexp.MustCompile(`(?i)Figura\s*\d+.*?(Fuente|Elaborado).*?(\.|$)`)
	pageMarkerRe  = regexp.MustCompile(`(?i)[-—]*\s*Página\s*\d+\s*[-—]*`)
	pageBracketRe = regexp.MustCompile(`(?i)\[\s*p[aá]g(?:ina)?\.?\s*\d+\s*\]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// maxCleanPasses bounds the fixed-point loop; real text settles in two or three.
const maxCleanPasses = 8

// Cleaner normalizes retrieved passages for display and as QA context.
// It is safe for concurrent use.
type Cleaner struct {
	boilerplate *regexp.Regexp
}

// NewCleaner builds a cleaner that also strips the given running header/footer
// phrases (each up to and including the next number).
func NewCleaner(boilerplate []string) *Cleaner {
	c := &Cleaner{}
	quoted := make([]string, 0, len(boilerplate))
	for _, p := range boilerplate {
		if p = strings.TrimSpace(p); p != "" {
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
	}
	if len(quoted) > 0 {
		c.boilerplate = regexp.MustCompile(`(?is)(` + strings.Join(quoted, "|") + `).*?\d+`)
	}
	return c
}

// Clean applies the normalization passes until the text stops changing, so
// Clean(Clean(x)) == Clean(x).
func (c *Cleaner) Clean(raw string) string {
	text := raw
	for i := 0; i < maxCleanPasses; i++ {
		next := c.pass(text)
		if next == text {
			return text
		}
		text = next
	}
	return text
}

func (c *Cleaner) pass(text string) string {
	text = splitWordRe.ReplaceAllString(text, "${1}${2}")
	text = digitRunRe.ReplaceAllString(text, " ")
	text = isbnRe.ReplaceAllString(text, "")
	if c.boilerplate != nil {
		text = c.boilerplate.ReplaceAllString(text, "")
	}
	text = figureRe.ReplaceAllString(text, "")
	text = pageMarkerRe.ReplaceAllString(text, "")
	text = pageBracketRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
