package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/middleware"
	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/response"
)

// SettingsHandler serves the signed-in admin's profile and sign-in history.
type SettingsHandler struct {
	accounts *services.AccountService
}

func NewSettingsHandler(accounts *services.AccountService) *SettingsHandler {
	return &SettingsHandler{accounts: accounts}
}

// GET /api/settings/profile
func (h *SettingsHandler) Profile(c *gin.Context) {
	admin, err := h.accounts.Profile(requestContext(c), middleware.AdminID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, admin)
}

// GET /api/settings/history
func (h *SettingsHandler) History(c *gin.Context) {
	history, err := h.accounts.History(requestContext(c), middleware.AdminID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, history)
}
