// Package models defines core data structures for chunks, queries, and answers.
package models

import "time"

// Chunk is a fixed-size window of document text, the unit of retrieval.
// IDs are dense and zero-based in document order.
type Chunk struct {
	ID        int    `json:"id" db:"id"`
	Text      string `json:"text" db:"text"`
	WordCount int    `json:"word_count" db:"word_count"`
}

// CorpusInfo describes the document a chunk collection was built from.
type CorpusInfo struct {
	SnapshotID   string    `json:"snapshot_id" db:"snapshot_id"`
	Source       string    `json:"source" db:"source"`
	ChunkSize    int       `json:"chunk_size" db:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap" db:"chunk_overlap"`
	ChunkCount   int       `json:"chunk_count" db:"chunk_count"`
	TextLength   int       `json:"text_length" db:"text_length"`
	IngestedAt   time.Time `json:"ingested_at" db:"ingested_at"`
}

// Feedback is a user's verdict on one answer.
type Feedback struct {
	ID        string    `json:"id" db:"id"`
	MessageID string    `json:"message_id" db:"message_id"`
	Query     string    `json:"query" db:"query"`
	Useful    bool      `json:"useful" db:"useful"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}
