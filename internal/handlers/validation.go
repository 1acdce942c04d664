package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/response"
	appValidator "github.com/philsca/registrar/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := decodeAndValidate(c, dest); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// bindStatus is bindAndValidate for the endpoints answering with a {status, error} body.
func bindStatus[T any](c *gin.Context, dest *T) bool {
	if err := decodeAndValidate(c, dest); err != nil {
		response.StatusError(c, err)
		return false
	}
	return true
}

func decodeAndValidate(c *gin.Context, dest any) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.NewBadRequest("invalid JSON payload")
	}
	return validationError(appValidator.ValidateStruct(dest))
}

// validationError converts validator failures into a VALIDATION_FAILED error with one message per field.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var failures appValidator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		return appErrors.NewValidation(failures.Messages())
	}
	return appErrors.NewBadRequest("invalid request payload")
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
