package models

import (
	"fmt"
	"strings"
)

// SearchQuery is a question plus retrieval knobs. A nil Threshold means "use the default".
type SearchQuery struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// QueryDefaults holds the values applied to unset SearchQuery fields.
type QueryDefaults struct {
	TopK      int
	MaxTopK   int
	Threshold float64
}

// Validate normalizes the query and fills defaults. TopK above MaxTopK is capped.
func (q *SearchQuery) Validate(d QueryDefaults) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidParameters)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidParameters, q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = d.TopK
	}
	if d.MaxTopK > 0 && q.TopK > d.MaxTopK {
		q.TopK = d.MaxTopK
	}
	if q.Threshold == nil {
		t := d.Threshold
		q.Threshold = &t
	}
	if *q.Threshold < 0 || *q.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [0,1], got %g", ErrInvalidParameters, *q.Threshold)
	}
	return nil
}

// ThresholdValue returns the threshold, or 0 when unset.
func (q *SearchQuery) ThresholdValue() float64 {
	if q.Threshold == nil {
		return 0
	}
	return *q.Threshold
}
