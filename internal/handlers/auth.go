package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/philsca/registrar/internal/auth"
	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/response"
)

// AuthHandler manages the dashboard session (login/current/sign out/delete account).
type AuthHandler struct {
	accounts *services.AccountService
	sessions *iauth.SessionManager
}

func NewAuthHandler(accounts *services.AccountService, sessions *iauth.SessionManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

type loginValues struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100,strongpassword"`
}

type loginRequest struct {
	Values loginValues `json:"values" validate:"required"`
}

type deleteAccountRequest struct {
	ID string `json:"id"`
}

// POST /api/session
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindStatus(c, &req) {
		return
	}

	admin, err := h.accounts.Login(requestContext(c), services.LoginInput{
		Email:     req.Values.Email,
		Password:  req.Values.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		response.StatusError(c, err)
		return
	}

	if err := h.sessions.Save(c.Writer, iauth.SessionData{
		UID:         admin.ID,
		DisplayName: admin.DisplayName,
		Email:       admin.Email,
		PhotoURL:    admin.PhotoURL,
		IsLoggedIn:  true,
	}); err != nil {
		response.StatusError(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Status(c, http.StatusOK, admin.ID)
}

// GET /api/session
func (h *AuthHandler) Current(c *gin.Context) {
	data, err := h.sessions.Load(c.Request)
	if err != nil {
		response.Success(c, http.StatusOK, iauth.SessionData{IsLoggedIn: false})
		return
	}
	response.Success(c, http.StatusOK, data)
}

// POST /api/signOut
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.sessions.Destroy(c.Writer)
	response.Status(c, http.StatusOK, "")
}

// POST /api/deleteAccount
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.StatusError(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		response.StatusError(c, errors.NewBadRequest("ID is required."))
		return
	}

	session, err := h.sessions.Load(c.Request)
	if err != nil {
		response.StatusError(c, errors.ErrUnauthorized)
		return
	}
	if session.UID != id {
		response.StatusError(c, errors.ErrForbidden)
		return
	}

	if err := h.accounts.DeleteAccount(requestContext(c), id); err != nil {
		response.StatusError(c, err)
		return
	}

	h.sessions.Destroy(c.Writer)
	response.Status(c, http.StatusOK, "")
}
