package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"go.uber.org/zap"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.ServiceInfo{
		Service: "kotae",
		Version: s.version,
		Endpoints: map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /metrics",
			"query":       "POST /api/v1/query",
			"batch_query": "POST /api/v1/batch-query",
			"collection":  "GET, DELETE /api/v1/collection",
			"documents":   "POST /api/v1/documents",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := s.collection.Info(r.Context())
	if err != nil {
		s.logger.Warn("health: collection unavailable", zap.Error(err))
		s.respondJSON(w, http.StatusOK, models.HealthResponse{Status: statusDegraded, Error: err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:    statusHealthy,
		Backend:   info.Backend,
		Documents: info.Documents,
		Chunks:    info.Chunks,
		Vectors:   info.Vectors,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question))

	start := time.Now()
	state, err := s.pipeline.Run(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("query failed", zap.String("question", req.Question), zap.Error(err))
		s.respondError(w, statusForQueryError(err), "error processing query: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.NewQueryResponse(state, time.Since(start)))
}

// statusForQueryError maps a pipeline failure to an HTTP status.
func statusForQueryError(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrClassification), errors.Is(err, pipeline.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleBatchQuery(w http.ResponseWriter, r *http.Request) {
	var req models.BatchQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("batch query request", zap.Int("questions", len(req.Questions)))

	start := time.Now()
	items := s.pipeline.RunMany(r.Context(), req.Questions)
	resp := models.BatchQueryResponse{Results: make([]*models.QueryResponse, len(items))}
	for i, item := range items {
		if item.Err != nil {
			s.logger.Warn("batch item failed", zap.Int("index", i), zap.Error(item.Err))
			resp.Results[i] = models.NewErrorResponse(item.Question, item.Err)
			continue
		}
		resp.Results[i] = models.NewQueryResponse(item.State, item.Elapsed)
	}
	resp.TotalTime = time.Since(start).Seconds()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.collection.Info(r.Context())
	if err != nil {
		s.logger.Error("collection info failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "error fetching collection info: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCollectionClear(w http.ResponseWriter, r *http.Request) {
	if err := s.collection.Clear(r.Context()); err != nil {
		s.logger.Error("collection clear failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "error clearing collection: "+err.Error())
		return
	}
	s.logger.Info("collection cleared")
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "path not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("ingest request", zap.String("path", abs), zap.Bool("dir", info.IsDir()))

	if info.IsDir() {
		res, err := s.collection.IndexDirectory(r.Context(), abs)
		if err != nil {
			s.respondError(w, statusForIngestError(err), err.Error())
			return
		}
		s.respondJSON(w, http.StatusCreated, res)
		return
	}
	res, err := s.collection.IndexFile(r.Context(), abs)
	if err != nil {
		s.respondError(w, statusForIngestError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func statusForIngestError(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, indexer.ErrNoDocuments):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
