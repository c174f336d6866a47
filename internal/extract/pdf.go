package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the text of pages first..last, each page whitespace
// collapsed and prefixed with its marker. Unreadable pages are reported to
// skip and left out.
func extractPDF(content []byte, first, last int, skip func(page int, err error)) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	from, to := pageBounds(first, last, r.NumPage())

	var buf strings.Builder
	for n := from; n <= to; n++ {
		text, err := pageText(r, n)
		if err != nil {
			if skip != nil {
				skip(n, err)
			}
			continue
		}
		writePage(&buf, n, text)
	}
	return buf.String(), nil
}

func pageBounds(first, last, total int) (from, to int) {
	from, to = first, last
	if from < 1 {
		from = 1
	}
	if to <= 0 || to > total {
		to = total
	}
	return from, to
}

// pageText extracts one page. The PDF library panics on some malformed
// content streams; that is reported as an error for the page.
func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %d: %v", n, p)
		}
	}()
	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// writePage appends "--- Página n ---\n<text>\n\n" unless the page is blank.
func writePage(buf *strings.Builder, n int, text string) {
	text = collapseLine(text)
	if text == "" {
		return
	}
	fmt.Fprintf(buf, "--- Página %d ---\n%s\n\n", n, text)
}
