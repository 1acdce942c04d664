package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/philsca/registrar/pkg/errors"
)

// Domain errors surfaced to handlers.
var (
	ErrRequestNotFound      = apperrors.New("REQUEST_NOT_FOUND", "Request not found", http.StatusNotFound)
	ErrUserNotFound         = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrNewsNotFound         = apperrors.New("NEWS_NOT_FOUND", "News/Update not found", http.StatusNotFound)
	ErrAdminNotFound        = apperrors.New("ADMIN_NOT_FOUND", "Account not found", http.StatusNotFound)
	ErrInvalidStatus        = apperrors.New("INVALID_STATUS", "Unknown request status", http.StatusBadRequest)
	ErrTransitionNotAllowed = apperrors.New("TRANSITION_NOT_ALLOWED", "The request cannot move to that status", http.StatusConflict)
	ErrEmptyMessage         = apperrors.New("EMPTY_MESSAGE", "Message cannot be empty", http.StatusBadRequest)
	ErrNoPaymentImage       = apperrors.New("NO_PAYMENT_IMAGE", "This request has no payment image", http.StatusNotFound)
	ErrSetupComplete        = apperrors.New("SETUP_COMPLETE", "An administrator account already exists", http.StatusConflict)
	ErrAccountLocked        = apperrors.New("ACCOUNT_LOCKED", "Too many failed attempts. Try again later", http.StatusTooManyRequests)
	ErrResetTokenInvalid    = apperrors.New("RESET_TOKEN_INVALID", "This reset link is invalid or has expired", http.StatusBadRequest)
)

// writeFailed wraps a persistence error behind the generic write failure message.
func writeFailed(op string, err error) error {
	return apperrors.ErrWriteFailed.WithInternal(fmt.Errorf("%s: %w", op, err))
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}
