package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/response"
)

// RequestHandler serves the request table and the status lifecycle.
type RequestHandler struct {
	requests  *services.RequestService
	lifecycle *services.RequestLifecycleService
}

func NewRequestHandler(requests *services.RequestService, lifecycle *services.RequestLifecycleService) *RequestHandler {
	return &RequestHandler{requests: requests, lifecycle: lifecycle}
}

type updateStatusRequest struct {
	Status             string     `json:"status" validate:"required"`
	EstimateCompletion *time.Time `json:"estimate_completion"`
}

type requestDetail struct {
	models.Request
	Logs []models.RequestLog `json:"requestsLogs"`
}

// GET /api/requests
func (h *RequestHandler) List(c *gin.Context) {
	rows, err := h.requests.List(requestContext(c), services.RequestFilter{
		Status: models.RequestStatus(strings.TrimSpace(c.Query("status"))),
		UserID: c.Query("user_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// GET /api/requests/:uid/:rid
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(requestContext(c), pathParam(c, "uid"), pathParam(c, "rid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, requestDetail{Request: *request, Logs: request.Logs})
}

// GET /api/requests/:uid/:rid/logs
func (h *RequestHandler) Logs(c *gin.Context) {
	logs, err := h.requests.Logs(requestContext(c), pathParam(c, "uid"), pathParam(c, "rid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

// GET /api/requests/:uid/:rid/status-options
func (h *RequestHandler) StatusOptions(c *gin.Context) {
	options, err := h.lifecycle.StatusOptions(requestContext(c), pathParam(c, "uid"), pathParam(c, "rid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, options)
}

// PATCH /api/requests/:uid/:rid/status
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	status := models.RequestStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		response.Error(c, errors.NewValidation(map[string]string{"status": "Unknown request status"}))
		return
	}

	request, err := h.lifecycle.UpdateStatus(requestContext(c), services.UpdateStatusInput{
		UserID:             pathParam(c, "uid"),
		RequestID:          pathParam(c, "rid"),
		Status:             status,
		EstimateCompletion: req.EstimateCompletion,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/requests/:uid/:rid/payment-image
func (h *RequestHandler) OpenPaymentImage(c *gin.Context) {
	view, err := h.lifecycle.OpenPaymentImage(requestContext(c), pathParam(c, "uid"), pathParam(c, "rid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}
