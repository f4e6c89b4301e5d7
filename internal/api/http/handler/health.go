package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/pixelforge/internal/orchestration"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	manager *orchestration.Manager
}

// NewHealthHandler creates the health handler
func NewHealthHandler(manager *orchestration.Manager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Liveness handles GET /health/live
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness handles GET /health/ready. The service is ready once at
// least one model is available.
func (h *HealthHandler) Readiness(c *gin.Context) {
	available := len(h.manager.ListModels(true))
	if available == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":           "not_ready",
			"available_models": 0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ready",
		"available_models": available,
	})
}
