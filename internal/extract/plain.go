package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as UTF-8 text with a leading BOM removed and
// CRLF line endings normalized. Invalid sequences become U+FFFD.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}
