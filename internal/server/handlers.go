package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

const msgUnavailable = "Servicio de búsqueda no disponible. Procese el documento primero."

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{Query: q.Get("query")}
	if v := q.Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "top_k must be an integer")
			return
		}
		query.TopK = n
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		query.Threshold = &f
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	answer, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.respondFailure(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

type processRequest struct {
	Path string `json:"path"`
}

type processResponse struct {
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunks_created"`
	Status        string `json:"status"`
	Generation    int64  `json:"generation"`
	SnapshotID    string `json:"snapshot_id"`
}

func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	// an empty body ingests the configured document
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	path, err := s.documentPath(strings.TrimSpace(req.Path))
	if err != nil {
		s.respondFailure(w, "process document rejected", err)
		return
	}
	s.logger.Info("process document request", zap.String("path", path))
	res, err := s.indexer.Ingest(r.Context(), path)
	if err != nil {
		s.respondFailure(w, "ingestion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, processResponse{
		Message:       "Documento procesado exitosamente",
		ChunksCreated: res.ChunksCreated,
		Status:        "success",
		Generation:    res.Generation,
		SnapshotID:    res.Info.SnapshotID,
	})
}

// documentPath resolves the file to ingest. An empty request means the
// configured document; any other path must live in that document's directory.
func (s *Server) documentPath(requested string) (string, error) {
	configured := s.config.Document.Path
	if configured == "" {
		return "", fmt.Errorf("%w: no document path configured", models.ErrInvalidParameters)
	}
	if requested == "" {
		return configured, nil
	}
	if !filepath.IsAbs(requested) {
		requested = filepath.Join(filepath.Dir(configured), requested)
	}
	root, err := resolvePath(filepath.Dir(configured))
	if err != nil {
		return "", fmt.Errorf("%w: document directory: %v", models.ErrInvalidParameters, err)
	}
	path, err := resolvePath(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidParameters, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: path must be inside %s", models.ErrInvalidParameters, root)
	}
	return path, nil
}

// resolvePath returns the absolute path with symlinks evaluated. A missing
// file keeps its name under the resolved parent directory.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return abs, nil
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		s.respondError(w, http.StatusBadRequest, "chunk id must be a non-negative integer")
		return
	}
	chunk, err := s.storage.GetChunk(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "chunk not found")
			return
		}
		s.respondFailure(w, "get chunk failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handlePassages(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	passages, err := s.engine.Passages(r.Context(), q, limit)
	if err != nil {
		s.respondFailure(w, "passage search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "passages": passages})
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Query     string `json:"query"`
	Useful    *bool  `json:"useful"`
	Comment   string `json:"comment"`
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Useful == nil {
		s.respondError(w, http.StatusBadRequest, "useful is required")
		return
	}
	fb := &models.Feedback{
		MessageID: req.MessageID,
		Query:     req.Query,
		Useful:    *req.Useful,
		Comment:   req.Comment,
	}
	if err := s.storage.CreateFeedback(r.Context(), fb); err != nil {
		s.respondFailure(w, "store feedback failed", err)
		return
	}
	s.logger.Info("feedback received", zap.String("id", fb.ID), zap.Bool("useful", fb.Useful))
	s.respondJSON(w, http.StatusCreated, map[string]string{
		"id":      fb.ID,
		"status":  "success",
		"message": "Gracias por tu feedback.",
	})
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	entries, err := s.storage.ListFeedback(r.Context(), limit)
	if err != nil {
		s.respondFailure(w, "list feedback failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"feedback": entries})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.respondFailure(w, "status: count chunks failed", err)
		return
	}
	resp := map[string]interface{}{
		"chunks":         chunkCount,
		"service_loaded": false,
		"generation":     int64(0),
		"document_path":  s.config.Document.Path,
	}
	if snap, release, err := s.holder.Acquire(); err == nil {
		resp["service_loaded"] = true
		resp["generation"] = snap.Generation
		resp["snapshot_id"] = snap.Info.SnapshotID
		resp["source"] = snap.Info.Source
		resp["ingested_at"] = snap.Info.IngestedAt
		resp["vector_index_size"] = snap.Index.Size()
		resp["vector_index_type"] = snap.Index.Type()
		release()
	}

	resp["config"] = map[string]interface{}{
		"embedding_provider":   s.config.Embedding.Provider,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"qa_provider":          s.config.QA.Provider,
		"index_type":           s.config.Vector.IndexType,
		"chunk_size":           s.config.Document.ChunkSize,
		"chunk_overlap":        s.config.Document.ChunkOverlap,
		"default_top_k":        s.config.Retrieval.DefaultTopK,
		"default_threshold":    s.config.Retrieval.DefaultThreshold,
		"database_path":        s.config.Storage.DatabasePath,
		"vector_index_path":    s.config.Storage.VectorIndexPath,
		"keyword_index_path":   s.config.Storage.KeywordIndexPath,
		"watch":                s.config.Document.Watch,
	}
	usage, err := storage.MeasureDiskUsage(
		s.config.Storage.DatabasePath,
		s.config.Storage.VectorIndexPath,
		s.config.Storage.KeywordIndexPath,
	)
	if err == nil {
		resp["disk_usage"] = usage
	} else {
		s.logger.Debug("status: disk usage unavailable", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	exists := false
	if p := s.config.Document.Path; p != "" {
		if _, err := os.Stat(p); err == nil {
			exists = true
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"service_loaded":  s.holder.Loaded(),
		"document_exists": exists,
	})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"system":  runtime.GOOS,
		"arch":    runtime.GOARCH,
		"go":      runtime.Version(),
		"num_cpu": runtime.NumCPU(),
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrIngestion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, what string, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = msgUnavailable
	case http.StatusInternalServerError:
		s.logger.Error(what, zap.Error(err))
	default:
		s.logger.Debug(what, zap.Error(err))
	}
	s.respondError(w, status, msg)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
