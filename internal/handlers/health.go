package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/monitoring"
	"github.com/philsca/registrar/pkg/response"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// GET /health
func (h *HealthHandler) Liveness(c *gin.Context) {
	h.respond(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// GET /health/ready
func (h *HealthHandler) Readiness(c *gin.Context) {
	h.respond(c, h.manager.EvaluateReadiness(requestContext(c)))
}

func (h *HealthHandler) respond(c *gin.Context, report monitoring.HealthReport) {
	if report.Status == monitoring.StatusDown {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Success: false,
			Data:    report,
			Error:   &response.ErrorInfo{Code: "SERVICE_UNAVAILABLE", Message: "one or more dependencies are down"},
		})
		return
	}
	response.Success(c, http.StatusOK, report)
}
