package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// collapseLine composes s to NFC and reduces every whitespace run, line
// breaks included, to a single space.
func collapseLine(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
