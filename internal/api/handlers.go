package api

import (
	"context"
	"net/http"

	"sdi-exam/roster/internal/bootstrap"

	"github.com/gin-gonic/gin"
)

// healthService is the subset of *bootstrap.Bootstrapper used by the health
// handlers. Declaring it as an interface allows test doubles to be injected.
type healthService interface {
	RunDeepHealth(ctx context.Context) map[string]bootstrap.ProbeResult
	IsReady() bool
	IsBootstrapInProgress() bool
}

// Handler serves the liveness, readiness and dependency endpoints.
type Handler struct {
	health healthService
}

// Health handles GET /health.
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep.
// It probes every enabled dependency and returns 200 only when all are OK.
//
//	@Summary	Dependency health
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/health/deep [get]
func (h *Handler) DeepHealth(c *gin.Context) {
	probes := h.health.RunDeepHealth(c.Request.Context())

	allOK := true
	for _, p := range probes {
		if !p.OK {
			allOK = false
			break
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !allOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": probes,
	})
}

// Ready handles GET /ready.
// It returns 200 only after a successful startup bootstrap; 503 otherwise.
// The body also reports whether a bootstrap run is active.
//
//	@Summary	Readiness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]bool
//	@Failure	503	{object}	map[string]bool
//	@Router		/ready [get]
func (h *Handler) Ready(c *gin.Context) {
	inProgress := h.health.IsBootstrapInProgress()
	if h.health.IsReady() {
		c.JSON(http.StatusOK, gin.H{"ready": true, "bootstrapInProgress": inProgress})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "bootstrapInProgress": inProgress})
}
