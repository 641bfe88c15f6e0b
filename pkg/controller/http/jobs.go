package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// JobHandler serves the job API
type JobHandler struct {
	jobUC interfaces.JobUseCase
}

// NewJobHandler creates a job API handler
func NewJobHandler(jobUC interfaces.JobUseCase) *JobHandler {
	return &JobHandler{jobUC: jobUC}
}

// createJobRequest is the POST /api/jobs body
type createJobRequest struct {
	Type         model.JobType      `json:"job_type"`
	ProjectID    types.ProjectID    `json:"project_id,omitempty"`
	RepositoryID types.RepositoryID `json:"repository_id,omitempty"`
	Params       model.JobParams    `json:"params"`
}

// Create enqueues a new job
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	job, err := h.jobUC.Enqueue(r.Context(), &model.Job{
		Type:         req.Type,
		ProjectID:    req.ProjectID,
		RepositoryID: req.RepositoryID,
		Params:       req.Params,
	})
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// Cancel requests cancellation of a pending or running job
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := types.JobID(chi.URLParam(r, "jobID"))
	if err := h.jobUC.Cancel(r.Context(), id); err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
		"job_id": id.String(),
	})
}

// jobDetail is the GET /api/jobs/{id} response
type jobDetail struct {
	*model.Job
	Steps []*model.JobStep `json:"steps"`
}

// Get returns one job with its step history
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := types.JobID(chi.URLParam(r, "jobID"))
	job, steps, err := h.jobUC.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	writeJSON(w, http.StatusOK, &jobDetail{Job: job, Steps: steps})
}

// List returns jobs, optionally filtered by ?status= and capped by ?limit=
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.JobStatus(r.URL.Query().Get("status"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, goerr.New("invalid limit parameter", goerr.V("limit", raw)), http.StatusBadRequest)
			return
		}
		limit = n
	}

	jobs, err := h.jobUC.List(r.Context(), status, limit)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Summary returns job counts by status
func (h *JobHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.jobUC.Summary(r.Context())
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ListDueRepositories returns repositories due for scheduled re-sourcing
func (h *JobHandler) ListDueRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.jobUC.ListDueRepositories(r.Context())
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	if repos == nil {
		repos = []*model.Repository{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"repositories": repos,
		"count":        len(repos),
	})
}
