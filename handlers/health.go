package handlers

import (
	"net/http"

	"courtwise/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	// Status returns the latest dependency probe.
	Status func() utils.HealthStatus
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{Status: utils.GetHealthStatus}
}

// HealthHandler handles GET /health.
func (h *HealthHandler) HealthHandler(c *gin.Context) {
	status := h.Status()
	code := http.StatusOK
	state := "ok"
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "dependencies": status})
}
