// Package corpus holds the active, fully built corpus snapshot and swaps it
// atomically when the document is re-ingested.
package corpus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

const dropTimeout = 30 * time.Second

// Snapshot is one immutable ingestion result. Row i of Index and chunk i of
// Chunks describe the same passage.
type Snapshot struct {
	Generation int64
	Info       models.CorpusInfo
	Chunks     []models.Chunk
	Index      vector.VectorIndex
	Keywords   *keyword.BleveIndex

	inflight sync.WaitGroup
}

// Chunk returns the chunk with id, or false when id is out of range.
func (s *Snapshot) Chunk(id int) (models.Chunk, bool) {
	if id < 0 || id >= len(s.Chunks) {
		return models.Chunk{}, false
	}
	return s.Chunks[id], true
}

func (s *Snapshot) close() error {
	var errs []error
	if s.Index != nil {
		errs = append(errs, s.Index.Close())
	}
	if s.Keywords != nil {
		errs = append(errs, s.Keywords.Close())
	}
	return errors.Join(errs...)
}

// retire drops storage that a newer snapshot replaced (remote collections,
// on-disk keyword directories), then closes.
func (s *Snapshot) retire() error {
	var errs []error
	if d, ok := s.Index.(vector.Dropper); ok {
		ctx, cancel := context.WithTimeout(context.Background(), dropTimeout)
		errs = append(errs, d.Drop(ctx))
		cancel()
	}
	if s.Index != nil {
		errs = append(errs, s.Index.Close())
	}
	if s.Keywords != nil {
		errs = append(errs, s.Keywords.Remove())
	}
	return errors.Join(errs...)
}

// Holder owns the active snapshot. Readers Acquire it and release when done;
// Swap publishes a new snapshot and retires the old one after its readers finish.
type Holder struct {
	mu         sync.RWMutex
	cur        *Snapshot
	generation int64
	logger     *zap.Logger
	retiring   sync.WaitGroup
}

// Option configures a Holder.
type Option func(*Holder)

// WithLogger sets the logger used for retirement errors.
func WithLogger(l *zap.Logger) Option {
	return func(h *Holder) { h.logger = l }
}

// NewHolder returns an empty holder; Acquire fails until the first Swap.
func NewHolder(opts ...Option) *Holder {
	h := &Holder{}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Acquire returns the active snapshot and a release func that must be called
// exactly once when the caller is done with it.
func (h *Holder) Acquire() (*Snapshot, func(), error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cur == nil {
		return nil, nil, models.ErrServiceUnavailable
	}
	s := h.cur
	s.inflight.Add(1)
	var once sync.Once
	return s, func() { once.Do(s.inflight.Done) }, nil
}

// Loaded reports whether a snapshot is active.
func (h *Holder) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur != nil
}

// Generation returns the generation of the active snapshot, 0 when none.
func (h *Holder) Generation() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cur == nil {
		return 0
	}
	return h.cur.Generation
}

// Swap assigns next the following generation number and publishes it. The
// previous snapshot is retired in the background once its readers release it.
func (h *Holder) Swap(next *Snapshot) int64 {
	h.mu.Lock()
	h.generation++
	next.Generation = h.generation
	old := h.cur
	h.cur = next
	h.mu.Unlock()

	if old != nil {
		h.retiring.Add(1)
		go func() {
			defer h.retiring.Done()
			old.inflight.Wait()
			if err := old.retire(); err != nil && h.logger != nil {
				h.logger.Warn("failed to retire corpus snapshot",
					zap.Int64("generation", old.Generation), zap.Error(err))
			}
		}()
	}
	return next.Generation
}

// Close unpublishes the active snapshot, waits for all readers and pending
// retirements, and closes it. Remote index storage is kept for the next start.
func (h *Holder) Close() error {
	h.mu.Lock()
	old := h.cur
	h.cur = nil
	h.mu.Unlock()

	h.retiring.Wait()
	if old == nil {
		return nil
	}
	old.inflight.Wait()
	return old.close()
}
