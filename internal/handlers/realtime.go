package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/philsca/registrar/internal/auth"
	"github.com/philsca/registrar/internal/middleware"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/response"
)

// RealtimeHandler hands out websocket tickets and upgrades ticketed sockets.
type RealtimeHandler struct {
	hub     *realtime.Hub
	tickets *iauth.TicketService
	known   map[string]struct{}
}

// NewRealtimeHandler accepts only the listed streams, or any stream when none are given.
func NewRealtimeHandler(hub *realtime.Hub, tickets *iauth.TicketService, streams ...string) *RealtimeHandler {
	h := &RealtimeHandler{hub: hub, tickets: tickets}
	if names := realtime.ParseStreams(streams...); len(names) > 0 {
		h.known = make(map[string]struct{}, len(names))
		for _, name := range names {
			h.known[name] = struct{}{}
		}
	}
	return h
}

// GET /api/realtime/ticket
func (h *RealtimeHandler) Ticket(c *gin.Context) {
	if h.tickets == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	ticket, expiresAt, err := h.tickets.Issue(middleware.AdminID(c))
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ticket": ticket, "expires_at": expiresAt})
}

// GET /ws?ticket=...&streams=requests,messages
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.tickets == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	ticket := strings.TrimSpace(c.Query("ticket"))
	if ticket == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	claims, err := h.tickets.Redeem(requestContext(c), ticket)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	requested := realtime.ParseStreams(append([]string{c.Query("streams")}, c.QueryArray("stream")...)...)
	if len(requested) == 0 {
		requested = []string{realtime.StreamDashboard}
	}
	for _, stream := range requested {
		if !h.accepts(stream) {
			response.Error(c, errors.ErrNotFound.WithMessage("unknown stream "+stream))
			return
		}
	}

	h.hub.Serve(claims.AdminID, requested, h.known, c.Writer, c.Request)
}

func (h *RealtimeHandler) accepts(stream string) bool {
	if h.known == nil {
		return true
	}
	_, ok := h.known[stream]
	return ok
}
