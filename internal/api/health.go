package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/rerun/internal/db"
)

// HealthResponse reports service liveness and database reachability
type HealthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Time          string `json:"time"`
	Error         string `json:"error,omitempty"`
}

// HealthHandler answers liveness probes
type HealthHandler struct {
	db      *db.DB
	started time.Time
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(database *db.DB) *HealthHandler {
	return &HealthHandler{
		db:      database,
		started: time.Now(),
	}
}

// Check handles GET /api/health. A failed database ping degrades the
// status without taking the endpoint down.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:        "ok",
		Database:      "reachable",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Time:          time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unreachable"
		response.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB) {
	handler := NewHealthHandler(database)
	apiGroup.GET("/health", handler.Check)
}
