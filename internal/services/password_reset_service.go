package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/pkg/crypto"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/mail"
)

const (
	defaultResetExpiry     = time.Hour
	defaultResetTokenBytes = 32
)

// PasswordResetOption customises the PasswordResetService.
type PasswordResetOption func(*PasswordResetService)

// WithResetBaseURL sets the page that receives the reset token.
func WithResetBaseURL(url string) PasswordResetOption {
	return func(s *PasswordResetService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithResetExpiry overrides the token lifetime.
func WithResetExpiry(d time.Duration) PasswordResetOption {
	return func(s *PasswordResetService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithResetClock injects a custom time source.
func WithResetClock(clock func() time.Time) PasswordResetOption {
	return func(s *PasswordResetService) {
		s.now = clockOrNow(clock)
	}
}

// PasswordResetService emails single-use reset links to admins.
type PasswordResetService struct {
	db       *gorm.DB
	mailer   mail.Mailer
	provider *providers.LocalProvider
	baseURL  string
	expiry   time.Duration
	now      func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService. A nil mailer stores tokens without sending them.
func NewPasswordResetService(db *gorm.DB, mailer mail.Mailer, provider *providers.LocalProvider, opts ...PasswordResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if provider == nil {
		return nil, errors.New("password reset service: local provider is required")
	}
	svc := &PasswordResetService{
		db:       db,
		mailer:   mailer,
		provider: provider,
		expiry:   defaultResetExpiry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Forgot issues a reset token for the admin registered under email and mails the
// link. Unknown addresses succeed silently; the returned token is empty for them.
func (s *PasswordResetService) Forgot(ctx context.Context, email string) (string, error) {
	ctx = ensureContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("password reset service: find admin: %w", err)
	}

	token, err := crypto.GenerateToken(defaultResetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("password reset service: generate token: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("admin_id = ? AND used_at IS NULL", admin.ID).
		Delete(&models.PasswordResetToken{}).Error; err != nil {
		return "", fmt.Errorf("password reset service: cleanup existing: %w", err)
	}

	record := models.PasswordResetToken{
		AdminID:   admin.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.expiry),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", writeFailed("password reset service: create token", err)
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{admin.Email},
			Subject: "Reset your PhilSCA Registrar password",
			Body:    s.resetBody(s.resetLink(token)),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil {
			if errors.Is(mailErr, mail.ErrSMTPDisabled) {
				logger.WithModule("password-reset").Info("smtp disabled; reset email not sent", zap.String("admin_id", admin.ID))
			} else {
				return "", fmt.Errorf("password reset service: send email: %w", mailErr)
			}
		}
	}

	return token, nil
}

// Reset consumes a token and sets the admin's new password.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) error {
	ctx = ensureContext(ctx)
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetTokenInvalid
	}

	var record models.PasswordResetToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", crypto.HashToken(token)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("password reset service: find token: %w", err)
	}

	now := s.now()
	if record.UsedAt != nil || !record.ExpiresAt.After(now) {
		return ErrResetTokenInvalid
	}

	if err := s.provider.SetPassword(ctx, record.AdminID, newPassword); err != nil {
		if errors.Is(err, providers.ErrInvalidCredentials) {
			return ErrResetTokenInvalid
		}
		return writeFailed("password reset service: set password", err)
	}

	if err := s.db.WithContext(ctx).Model(&record).UpdateColumn("used_at", now).Error; err != nil {
		return writeFailed("password reset service: consume token", err)
	}
	return nil
}

// PurgeExpired removes expired or consumed tokens.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", s.now()).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("password reset service: purge tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PasswordResetService) resetLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.baseURL, token)
}

func (s *PasswordResetService) resetBody(link string) string {
	return fmt.Sprintf("A password reset was requested for your PhilSCA Registrar account.\n\nReset your password by visiting the link below:\n%s\n\nIf you did not request this, you can ignore this message.\n", link)
}
