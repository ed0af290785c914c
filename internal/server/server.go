package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vidscribe/vidscribe/internal/model"
)

// maxUploadBytes caps the multipart upload size for a single video.
const maxUploadBytes = 500 << 20 // 500 MiB

// JobService is the slice of the tracker the HTTP layer depends on.
type JobService interface {
	Submit(ctx context.Context, data []byte, filename, apiKey string) (model.JobRecord, error)
	HandleCallback(ctx context.Context, jobID string, payload []byte) (model.JobRecord, error)
	Get(ctx context.Context, jobID string) (model.JobRecord, error)
	Refresh(ctx context.Context, jobID, apiKey string) (model.JobRecord, error)
	ListAll(ctx context.Context, apiKey string) ([]model.JobRecord, error)
	ImportPrediction(ctx context.Context, predictionID string, payload []byte) (model.JobRecord, error)
}

// Server exposes the transcription job API over HTTP.
type Server struct {
	jobs   JobService
	apiKey string // fallback credential when the request carries no X-API-Key
	logger *slog.Logger
}

// New creates a Server backed by the given job service.
func New(jobs JobService, apiKey string, logger *slog.Logger) *Server {
	return &Server{
		jobs:   jobs,
		apiKey: apiKey,
		logger: logger,
	}
}

// Handler returns the route table for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transcribe", s.handleSubmit)
	mux.HandleFunc("POST /api/transcription-callback", s.handleCallback)
	mux.HandleFunc("GET /api/transcriptions", s.handleList)
	mux.HandleFunc("GET /api/transcription/{jobId}", s.handleRefresh)
	mux.HandleFunc("GET /api/transcription-status/{jobId}", s.handleStatus)
	mux.HandleFunc("POST /api/transcriptions/{predictionId}", s.handleImport)
	return mux
}

// apiKeyFrom picks the request credential: the X-API-Key header wins, then
// the server-wide fallback key.
func (s *Server) apiKeyFrom(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return s.apiKey
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	apiKey := s.apiKeyFrom(r)
	if apiKey == "" {
		s.writeError(w, http.StatusUnauthorized, "API key required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no video file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("reading upload: %v", err))
		return
	}

	rec, err := s.jobs.Submit(r.Context(), data, header.Filename, apiKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("reading callback body: %v", err))
		return
	}

	rec, err := s.jobs.HandleCallback(r.Context(), jobID, payload)
	if errors.Is(err, model.ErrNotFound) {
		// Acknowledge with 200 so the remote service stops retrying a
		// callback for a job this instance never created.
		s.logger.Warn("callback for unknown job", "job_id", jobID)
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "Job not found",
		})
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"jobId":   rec.JobID,
		"status":  rec.Status,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.jobs.ListAll(r.Context(), s.apiKeyFrom(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  recs,
		"count": len(recs),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	apiKey := s.apiKeyFrom(r)
	if apiKey == "" {
		s.writeError(w, http.StatusUnauthorized, "API key required")
		return
	}

	rec, err := s.jobs.Refresh(r.Context(), r.PathValue("jobId"), apiKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.jobs.Get(r.Context(), r.PathValue("jobId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("reading import body: %v", err))
		return
	}

	rec, err := s.jobs.ImportPrediction(r.Context(), r.PathValue("predictionId"), payload)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// writeServiceError maps tracker errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var (
		valErr  *model.ValidationError
		upErr   *model.UploadError
		subErr  *model.SubmissionError
		qErr    *model.QueryError
		stoErr  *model.StorageError
	)
	switch {
	case errors.As(err, &valErr):
		s.writeError(w, http.StatusBadRequest, valErr.Msg)
	case errors.Is(err, model.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Job not found")
	case errors.As(err, &upErr), errors.As(err, &subErr), errors.As(err, &qErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &stoErr):
		s.logger.Error("storage failure", "error", err)
		s.writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		s.logger.Error("unhandled error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}
