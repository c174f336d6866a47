// Package qa extracts short answer spans from retrieved passages.
package qa

import (
	"context"
	"errors"
)

// ErrNoAnswer is returned when the reader finds no span in the passage.
var ErrNoAnswer = errors.New("no answer span")

// Answer is a span of the passage and the reader's confidence in it.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
}

// Reader answers a question from a single passage.
type Reader interface {
	Answer(ctx context.Context, question, passage string) (Answer, error)
	Close() error
}
