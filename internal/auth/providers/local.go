package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned when the supplied email/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the admin has exceeded the permitted failed attempts.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// LocalConfig defines tunable behaviour for the local provider.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// RegisterInput captures the details required to register a new admin.
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
	PhotoURL    string
}

// LocalProvider implements email/password authentication against the admin table
// with account lockout controls.
type LocalProvider struct {
	db        *gorm.DB
	clock     func() time.Time
	threshold int
	duration  time.Duration
}

// NewLocalProvider builds a provider with sane defaults.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 15 * time.Minute
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{
		db:        db,
		clock:     clock,
		threshold: threshold,
		duration:  duration,
	}, nil
}

// Authenticate verifies the supplied credentials and returns the admin when successful.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	db := p.db.WithContext(ctx)

	var admin models.Admin
	err := db.Where("LOWER(email) = ?", email).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query admin: %w", err)
	}

	now := p.clock()

	if admin.LockedUntil != nil && admin.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	if !crypto.VerifyPassword(admin.Password, password) {
		return nil, p.handleFailedAttempt(db, &admin, now)
	}

	admin.FailedAttempts = 0
	admin.LockedUntil = nil
	admin.LastLoginAt = &now

	if err := db.Model(&admin).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
	}).Error; err != nil {
		return nil, fmt.Errorf("local provider: update admin: %w", err)
	}

	return &admin, nil
}

func (p *LocalProvider) handleFailedAttempt(db *gorm.DB, admin *models.Admin, now time.Time) error {
	// An expired lock starts a fresh count.
	if admin.LockedUntil != nil {
		admin.FailedAttempts = 0
		admin.LockedUntil = nil
	}
	admin.FailedAttempts++

	updates := map[string]any{
		"failed_attempts": admin.FailedAttempts,
		"locked_until":    nil,
	}

	if admin.FailedAttempts >= p.threshold {
		lockUntil := now.Add(p.duration)
		admin.LockedUntil = &lockUntil
		updates["locked_until"] = lockUntil
	}

	if err := db.Model(admin).Updates(updates).Error; err != nil {
		return fmt.Errorf("local provider: update failed attempts: %w", err)
	}

	if admin.LockedUntil != nil {
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

// Register creates a new admin with a hashed password.
func (p *LocalProvider) Register(ctx context.Context, input RegisterInput) (*models.Admin, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, errors.New("local provider: email and password are required")
	}

	db := p.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Admin{}).Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("local provider: check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("local provider: hash password: %w", err)
	}

	admin := &models.Admin{
		Email:       email,
		Password:    hashed,
		DisplayName: strings.TrimSpace(input.DisplayName),
		PhotoURL:    strings.TrimSpace(input.PhotoURL),
	}
	if err := db.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("local provider: create admin: %w", err)
	}

	return admin, nil
}

// SetPassword replaces an admin's password and clears any lockout.
func (p *LocalProvider) SetPassword(ctx context.Context, adminID, newPassword string) error {
	if strings.TrimSpace(adminID) == "" || newPassword == "" {
		return errors.New("local provider: admin id and new password are required")
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("local provider: hash password: %w", err)
	}

	result := p.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", adminID).Updates(map[string]any{
		"password":        hashed,
		"failed_attempts": 0,
		"locked_until":    nil,
	})
	if result.Error != nil {
		return fmt.Errorf("local provider: update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidCredentials
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
