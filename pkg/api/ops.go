package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/health"
	"github.com/gamakdragons/wheretruck/pkg/version"
)

// HealthChecker runs the dependency health checks.
type HealthChecker interface {
	Check(ctx context.Context) health.AggregatedResult
}

// OpsHandler serves the operational endpoints.
type OpsHandler struct {
	health  HealthChecker
	metrics http.Handler
	info    version.Info
}

// NewOpsHandler creates an ops handler. A nil metrics handler leaves /metrics unmounted.
func NewOpsHandler(checker HealthChecker, metrics http.Handler, info version.Info) *OpsHandler {
	return &OpsHandler{health: checker, metrics: metrics, info: info}
}

// Register mounts the operational routes on g.
func (h *OpsHandler) Register(g gin.IRoutes) {
	g.GET("/health", h.liveness)
	g.GET("/ready", h.readiness)
	g.GET("/version", h.version)
	if h.metrics != nil {
		g.GET("/metrics", gin.WrapH(h.metrics))
	}
}

// liveness reports that the process is serving. It does not check dependencies.
func (h *OpsHandler) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
}

// readiness runs every dependency check. Only an unhealthy dependency fails it; a
// degraded one, such as an open breaker, still reports ready.
func (h *OpsHandler) readiness(c *gin.Context) {
	result := h.health.Check(c.Request.Context())
	if result.Status == health.StatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *OpsHandler) version(c *gin.Context) {
	c.JSON(http.StatusOK, h.info)
}
