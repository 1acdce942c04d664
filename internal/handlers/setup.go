package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/response"
)

type SetupHandler struct {
	accounts *services.AccountService
}

func NewSetupHandler(accounts *services.AccountService) *SetupHandler {
	return &SetupHandler{accounts: accounts}
}

type initializeRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Password    string `json:"password" validate:"required,min=8,max=100,strongpassword"`
	Repassword  string `json:"repassword" validate:"required,eqfield=Password"`
}

// GET /api/setup/status
func (h *SetupHandler) Status(c *gin.Context) {
	required, err := h.accounts.SetupRequired(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"initialized": !required})
}

// POST /api/setup/initialize
func (h *SetupHandler) Initialize(c *gin.Context) {
	var body initializeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	admin, err := h.accounts.Initialize(requestContext(c), services.InitializeInput{
		Email:       body.Email,
		DisplayName: body.DisplayName,
		Password:    body.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"admin_id": admin.ID})
}
