package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/orchestration"
	"github.com/pixelforge/pixelforge/pkg/errors"
)

// ModelHandler serves model inspection endpoints
type ModelHandler struct {
	manager *orchestration.Manager
	logger  logging.Logger
}

// NewModelHandler creates the model handler
func NewModelHandler(manager *orchestration.Manager, logger logging.Logger) *ModelHandler {
	return &ModelHandler{manager: manager, logger: logger}
}

// ListModels handles GET /api/v1/models
func (h *ModelHandler) ListModels(c *gin.Context) {
	availableOnly := c.Query("available") == "true"
	models := h.manager.ListModels(availableOnly)

	respondOK(c, gin.H{"models": models, "count": len(models)})
}

// GetStatus handles GET /api/v1/models/:id/status
func (h *ModelHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")
	status, ok := h.manager.GetModelStatus(id)
	if !ok {
		respondError(c, errors.NotFoundError("model "+id))
		return
	}

	respondOK(c, status)
}

// GetMetrics handles GET /api/v1/models/:id/metrics
func (h *ModelHandler) GetMetrics(c *gin.Context) {
	id := c.Param("id")
	metrics, ok := h.manager.GetModelMetrics(id)
	if !ok {
		respondError(c, errors.NotFoundError("metrics for model "+id))
		return
	}

	respondOK(c, metrics)
}

// GetRanking handles GET /api/v1/models/ranking
func (h *ModelHandler) GetRanking(c *gin.Context) {
	respondOK(c, gin.H{"ranking": h.manager.GetRanking()})
}
