package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/response"
)

type DashboardHandler struct {
	svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GET /api/dashboard?year=
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(requestContext(c), parseIntQuery(c, "year", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
