// Package extract pulls plain text out of the document formats kotae ingests.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Extractor extracts plain text from document files.
type Extractor struct {
	firstPage int
	lastPage  int
	logger    *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPageRange limits PDF extraction to pages first..last (1-based,
// inclusive). Zero leaves that end open.
func WithPageRange(first, last int) Option {
	return func(e *Extractor) {
		e.firstPage, e.lastPage = first, last
	}
}

// WithLogger sets the logger used to report skipped pages.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract reads the file at path and returns its text content.
// PDF pages are prefixed with "--- Página N ---" markers; DOCX and Excel text
// is pulled from the package XML; anything else is read as UTF-8 text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content, e.firstPage, e.lastPage, e.skipPage)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

func (e *Extractor) skipPage(page int, err error) {
	if e.logger != nil {
		e.logger.Warn("skipping unreadable page", zap.Int("page", page), zap.Error(err))
	}
}
