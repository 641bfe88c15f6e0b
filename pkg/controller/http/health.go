package http

import (
	"net/http"

	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := &model.HealthStatus{
		Status:  "healthy",
		Service: "prospector",
		Version: types.Version,
	}
	writeJSON(w, http.StatusOK, status)
}
