package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/response"
)

// PasswordHandler exposes the forgot/reset password flow.
type PasswordHandler struct {
	resets *services.PasswordResetService
}

func NewPasswordHandler(resets *services.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token      string `json:"token" validate:"required"`
	Password   string `json:"password" validate:"required,min=8,max=100,strongpassword"`
	Repassword string `json:"repassword" validate:"required,eqfield=Password"`
}

// POST /api/password/forgot
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	// The reply never reveals whether the address has an account.
	if _, err := h.resets.Forgot(requestContext(c), req.Email); err != nil {
		logger.WithModule("password-reset").Warn("password reset request failed", zap.Error(err))
	}
	response.Success(c, http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent."})
}

// POST /api/password/reset
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Reset(requestContext(c), req.Token, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password has been updated."})
}
