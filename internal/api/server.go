// Package api exposes the HTTP interface for the cloner service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-cloner/internal/clone"
	"github.com/JakeFAU/site-cloner/internal/config"
	"github.com/JakeFAU/site-cloner/internal/dispatcher"
	"github.com/JakeFAU/site-cloner/internal/metrics"
)

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router     chi.Router
	jobStore   clone.JobStore
	artifacts  clone.ArtifactStore
	dispatcher *dispatcher.Dispatcher
	idGen      clone.IDGenerator
	clock      clone.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobStore clone.JobStore,
	artifacts clone.ArtifactStore,
	dispatcher *dispatcher.Dispatcher,
	idGen clone.IDGenerator,
	clock clone.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobStore:   jobStore,
		artifacts:  artifacts,
		dispatcher: dispatcher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/clone", s.submitClone)
		r.Get("/jobs/{job_id}", s.getJob)
		r.Get("/clone/{job_id}/raw", s.getRaw)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.jobStore.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "job store unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type cloneRequest struct {
	URL string `json:"url"`
}

// submitClone validates the URL, persists a queued job, enqueues the
// task, and answers 202 with the new job id.
func (s *Server) submitClone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sourceURL, err := clone.ValidateSourceURL(req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := s.enqueueJob(r.Context(), sourceURL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		s.logger.Error("clone submit failed", zap.String("url", sourceURL), zap.Error(err))
		s.writeError(w, status, "failed to submit job")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if errors.Is(err, clone.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// getRaw serves the generated document. Unknown jobs answer 404; known
// jobs without a result yet answer 409.
func (s *Server) getRaw(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if errors.Is(err, clone.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	if job.Status == clone.JobStatusError {
		s.writeError(w, http.StatusConflict, job.ErrorDetail)
		return
	}
	if job.Status != clone.JobStatusComplete || job.ResultRef == "" {
		s.writeError(w, http.StatusConflict, "job result not ready")
		return
	}

	body, err := s.artifacts.Get(r.Context(), job.ResultRef)
	if err != nil {
		s.logger.Error("artifact fetch failed",
			zap.String("job_id", jobID),
			zap.String("ref", job.ResultRef),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch result")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("raw write failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Server) enqueueJob(ctx context.Context, sourceURL string) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := clone.Job{
		ID:        jobID,
		Status:    clone.JobStatusQueued,
		SourceURL: sourceURL,
		Submitted: now,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	task := clone.Task{
		JobID:     jobID,
		SourceURL: sourceURL,
		Attempt:   1,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, task); err != nil {
		s.abandonJob(jobID)
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

// abandonJob marks a job that was created but never enqueued as errored, so
// it does not sit in queued forever. Runs on a fresh context because the
// request context may already be dead.
func (s *Server) abandonJob(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	detail := clone.DetailInternalError + ": task enqueue failed"
	if err := s.jobStore.UpdateJobStatus(ctx, jobID, clone.JobStatusError, 100, detail); err != nil {
		s.logger.Error("abandon job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
