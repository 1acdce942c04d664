package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/response"
)

type MessageHandler struct {
	svc *services.MessageService
}

func NewMessageHandler(svc *services.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// GET /api/messages
func (h *MessageHandler) Conversations(c *gin.Context) {
	conversations, err := h.svc.Conversations(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversations)
}

// GET /api/messages/unread
func (h *MessageHandler) UnreadTotal(c *gin.Context) {
	total, err := h.svc.UnreadTotal(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": total})
}

// GET /api/messages/:uid
func (h *MessageHandler) Thread(c *gin.Context) {
	messages, err := h.svc.Thread(requestContext(c), pathParam(c, "uid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// POST /api/messages/:uid/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	changed, err := h.svc.MarkRead(requestContext(c), pathParam(c, "uid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": changed})
}

// POST /api/messages/:uid
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.svc.Send(requestContext(c), pathParam(c, "uid"), req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}
