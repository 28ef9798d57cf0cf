package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// ReadinessChecker reports whether a dependency is usable
type ReadinessChecker interface {
	Available() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	extractor ReadinessChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(extractor ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		extractor: extractor,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Extractor struct {
		Available bool `json:"available"`
	} `json:"extractor"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Extractor.Available = h.extractor.Available() == nil

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.extractor.Available(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
