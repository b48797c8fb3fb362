package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthStatus reports the state of optional collaborators.
type HealthStatus interface {
	LocalOnly() bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	persistence HealthStatus
	queue       bool
	storage     bool
}

// NewHealthHandler creates a new health handler. persistence may be nil.
func NewHealthHandler(persistence HealthStatus, queueEnabled, storageEnabled bool) *HealthHandler {
	return &HealthHandler{persistence: persistence, queue: queueEnabled, storage: storageEnabled}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	mode := "local"
	if h.persistence != nil && !h.persistence.LocalOnly() {
		mode = "remote"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"persistence": mode,
		"queue":       h.queue,
		"storage":     h.storage,
	})
}
