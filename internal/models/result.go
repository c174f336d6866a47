package models

// SearchResult is one retrieved chunk as shown to the user.
type SearchResult struct {
	ChunkID           int     `json:"chunk_id"`
	Text              string  `json:"text"`
	Similarity        float64 `json:"similarity"`
	SimilarityPercent float64 `json:"similarity_percent"`
	WordCount         int     `json:"word_count"`
	Source            string  `json:"source"`
	// Rank is 1-based and assigned only after truncation to top_k.
	Rank int `json:"rank"`
}

// SynthesizedAnswer is the response envelope for a question.
// FoundResults is true iff at least one candidate cleared the threshold
// (or the query was a social utterance).
type SynthesizedAnswer struct {
	Query         string          `json:"query"`
	Intent        string          `json:"intent"`
	Answer        string          `json:"answer"`
	Results       []*SearchResult `json:"results"`
	FoundResults  bool            `json:"found_results"`
	TopKRequested int             `json:"top_k_requested"`
	ThresholdUsed float64         `json:"threshold_used"`
	// Suggestions holds corrected queries when nothing was found.
	Suggestions []string `json:"suggestions,omitempty"`
	QueryTime   int64    `json:"query_time_ms"`
}
