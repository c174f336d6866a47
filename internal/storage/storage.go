// Package storage persists the chunk collection, corpus metadata and user feedback.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines chunk, corpus and feedback persistence operations.
type Storage interface {
	// Corpus operations. ReplaceCorpus swaps the whole chunk collection and
	// its metadata in one transaction.
	ReplaceCorpus(ctx context.Context, info *models.CorpusInfo, chunks []models.Chunk) error
	GetCorpusInfo(ctx context.Context) (*models.CorpusInfo, error)

	// Chunk operations
	ListChunks(ctx context.Context) ([]models.Chunk, error)
	GetChunk(ctx context.Context, id int) (*models.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)

	// Feedback operations
	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	ListFeedback(ctx context.Context, limit int) ([]*models.Feedback, error)

	Close() error
}
