// Package cluster expone el estado del nodo Raft.
package cluster

import (
	"net/http"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	httperrors "github.com/dropDatabas3/docstore/internal/http/errors"
	"github.com/dropDatabas3/docstore/internal/http/helpers"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
)

// ClusterController maneja GET /_cluster/state.
type ClusterController struct {
	repo repository.ClusterRepository
}

// NewClusterController crea el controller. repo nil => cluster deshabilitado.
func NewClusterController(repo repository.ClusterRepository) *ClusterController {
	return &ClusterController{repo: repo}
}

// State maneja GET /_cluster/state
func (c *ClusterController) State(w http.ResponseWriter, r *http.Request) {
	if c.repo == nil {
		helpers.WriteJSON(w, http.StatusNotFound, map[string]any{"enabled": false})
		return
	}
	stats, err := c.repo.GetStats(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("cluster stats failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, stats)
}
