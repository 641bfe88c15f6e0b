package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// registerRepositoryRequest is the POST /api/repositories body
type registerRepositoryRequest struct {
	Owner            string                 `json:"owner"`
	Name             string                 `json:"repo_name"`
	ProjectID        types.ProjectID        `json:"project_id,omitempty"`
	SourcingInterval model.SourcingInterval `json:"sourcing_interval,omitempty"`
}

// Register starts tracking a repository
func (h *JobHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	repo, err := h.jobUC.RegisterRepository(r.Context(), &model.Repository{
		Owner:            req.Owner,
		Name:             req.Name,
		ProjectID:        req.ProjectID,
		SourcingInterval: req.SourcingInterval,
	})
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	writeJSON(w, http.StatusCreated, repo)
}
