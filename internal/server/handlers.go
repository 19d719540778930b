package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

const maxRequestBody = 1 << 20

// JobService submits runs and reports their status.
type JobService interface {
	Submit(ctx context.Context, req schemas.RunRequest) (string, error)
	Get(id string) (schemas.JobRecord, bool)
}

// Handlers serves the run submission and status API.
type Handlers struct {
	log  *zap.Logger
	jobs JobService
}

func NewHandlers(logger *zap.Logger, jobs JobService) *Handlers {
	return &Handlers{
		log:  logger.Named("handlers"),
		jobs: jobs,
	}
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

// HandleHealthCheck confirms the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSubmitRun accepts a RunRequest and starts it in the background.
func (h *Handlers) HandleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req schemas.RunRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "request body is required")
			return
		}
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info("Accepted run.", zap.String("job_id", id), zap.String("url", req.TargetURL))
	respondWithJSON(w, http.StatusAccepted, submitResponse{JobID: id})
}

// HandleGetStatus returns the job record for {jobID}.
func (h *Handlers) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	record, ok := h.jobs.Get(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "job not found")
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
