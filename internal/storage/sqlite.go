package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		word_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS corpus (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		snapshot_id TEXT NOT NULL,
		source TEXT NOT NULL,
		chunk_size INTEGER NOT NULL,
		chunk_overlap INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		text_length INTEGER NOT NULL,
		ingested_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		query TEXT,
		useful BOOLEAN NOT NULL,
		comment TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceCorpus deletes all chunks and inserts chunks and info in one transaction.
func (s *SQLiteStorage) ReplaceCorpus(ctx context.Context, info *models.CorpusInfo, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, text, word_count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, c.WordCount); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.ID, err)
		}
	}

	if info.IngestedAt.IsZero() {
		info.IngestedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO corpus (id, snapshot_id, source, chunk_size, chunk_overlap, chunk_count, text_length, ingested_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   snapshot_id = excluded.snapshot_id,
		   source = excluded.source,
		   chunk_size = excluded.chunk_size,
		   chunk_overlap = excluded.chunk_overlap,
		   chunk_count = excluded.chunk_count,
		   text_length = excluded.text_length,
		   ingested_at = excluded.ingested_at`,
		info.SnapshotID, info.Source, info.ChunkSize, info.ChunkOverlap, info.ChunkCount, info.TextLength, info.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write corpus info: %w", err)
	}
	return tx.Commit()
}

// GetCorpusInfo returns the metadata of the stored corpus, or ErrNotFound.
func (s *SQLiteStorage) GetCorpusInfo(ctx context.Context) (*models.CorpusInfo, error) {
	var info models.CorpusInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_id, source, chunk_size, chunk_overlap, chunk_count, text_length, ingested_at
		 FROM corpus WHERE id = 1`,
	).Scan(&info.SnapshotID, &info.Source, &info.ChunkSize, &info.ChunkOverlap, &info.ChunkCount, &info.TextLength, &info.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("corpus info: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListChunks returns all chunks ordered by id.
func (s *SQLiteStorage) ListChunks(ctx context.Context) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, word_count FROM chunks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := []models.Chunk{}
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.WordCount); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunk returns a chunk by id.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id int) (*models.Chunk, error) {
	var c models.Chunk
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, word_count FROM chunks WHERE id = ?`, id,
	).Scan(&c.ID, &c.Text, &c.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// CreateFeedback stores fb, assigning an id and timestamp when unset.
func (s *SQLiteStorage) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, message_id, query, useful, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fb.ID, fb.MessageID, fb.Query, fb.Useful, fb.Comment, fb.CreatedAt,
	)
	return err
}

// ListFeedback returns the newest feedback entries first.
func (s *SQLiteStorage) ListFeedback(ctx context.Context, limit int) ([]*models.Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, query, useful, comment, created_at
		 FROM feedback ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Feedback
	for rows.Next() {
		var fb models.Feedback
		var query, comment sql.NullString
		if err := rows.Scan(&fb.ID, &fb.MessageID, &query, &fb.Useful, &comment, &fb.CreatedAt); err != nil {
			return nil, err
		}
		fb.Query, fb.Comment = query.String, comment.String
		out = append(out, &fb)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
