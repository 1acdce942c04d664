package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/pkg/crypto"
	apperrors "github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/metrics"
)

const (
	historyIDLength = 11
	unknownAgent    = "Unknown"
)

// LoginInput carries credentials and the client fingerprint recorded in the sign-in history.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// InitializeInput creates the first administrator.
type InitializeInput struct {
	Email       string
	DisplayName string
	Password    string
}

// AccountService handles admin sign-in, sign-in history and account removal.
type AccountService struct {
	db       *gorm.DB
	provider *providers.LocalProvider
	feed     realtime.Publisher
	now      func() time.Time
}

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		s.now = clockOrNow(clock)
	}
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, provider *providers.LocalProvider, feed realtime.Publisher, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if provider == nil {
		return nil, errors.New("account service: local provider is required")
	}
	svc := &AccountService{db: db, provider: provider, feed: publisherOrNop(feed), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login authenticates an admin and appends a sign-in history entry.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*models.Admin, error) {
	ctx = ensureContext(ctx)

	admin, err := s.provider.Authenticate(ctx, input.Email, input.Password)
	switch {
	case errors.Is(err, providers.ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	case errors.Is(err, providers.ErrAccountLocked):
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return nil, ErrAccountLocked
	case err != nil:
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	osName, browser := parseUserAgent(input.UserAgent)
	entry := models.SignInHistory{
		ID:          crypto.ShortID(historyIDLength),
		AdminID:     admin.ID,
		OSUsed:      osName,
		BrowserUsed: browser,
		IPAddress:   strings.TrimSpace(input.IPAddress),
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, writeFailed("account service: record sign-in", err)
	}
	s.feed.Publish(realtime.Event{
		Path: realtime.HistoryPath(admin.ID, entry.ID),
		Op:   realtime.OpCreate,
		Data: entry,
	})

	return admin, nil
}

// Profile returns the admin record.
func (s *AccountService) Profile(ctx context.Context, adminID string) (*models.Admin, error) {
	ctx = ensureContext(ctx)

	var admin models.Admin
	err := s.db.WithContext(ctx).Take(&admin, "id = ?", strings.TrimSpace(adminID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load admin: %w", err)
	}
	return &admin, nil
}

// History returns the admin's sign-in history, newest first.
func (s *AccountService) History(ctx context.Context, adminID string) ([]models.SignInHistory, error) {
	ctx = ensureContext(ctx)

	var rows []models.SignInHistory
	if err := s.db.WithContext(ctx).
		Where("admin_id = ?", strings.TrimSpace(adminID)).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("account service: list history: %w", err)
	}
	return rows, nil
}

// DeleteAccount removes the admin's sign-in history and then the admin record.
func (s *AccountService) DeleteAccount(ctx context.Context, adminID string) error {
	ctx = ensureContext(ctx)
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return ErrAdminNotFound
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("admin_id = ?", adminID).Delete(&models.SignInHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("admin_id = ?", adminID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Admin{}, "id = ?", adminID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAdminNotFound
		}
		return nil
	})
	if errors.Is(err, ErrAdminNotFound) {
		return ErrAdminNotFound
	}
	if err != nil {
		return writeFailed("account service: delete account", err)
	}

	s.feed.Publish(realtime.Event{Path: realtime.AdminPath(adminID), Op: realtime.OpDelete})
	return nil
}

// SetupRequired reports whether no administrator exists yet.
func (s *AccountService) SetupRequired(ctx context.Context) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("account service: count admins: %w", err)
	}
	return count == 0, nil
}

// Initialize creates the first administrator. It fails once any admin exists.
func (s *AccountService) Initialize(ctx context.Context, input InitializeInput) (*models.Admin, error) {
	ctx = ensureContext(ctx)

	required, err := s.SetupRequired(ctx)
	if err != nil {
		return nil, err
	}
	if !required {
		return nil, ErrSetupComplete
	}

	admin, err := s.provider.Register(ctx, providers.RegisterInput{
		Email:       input.Email,
		DisplayName: input.DisplayName,
		Password:    input.Password,
	})
	if errors.Is(err, providers.ErrEmailTaken) {
		return nil, ErrSetupComplete
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSetupComplete
		}
		return nil, writeFailed("account service: create admin", err)
	}
	return admin, nil
}

// parseUserAgent returns the operating system and browser names of a User-Agent header.
func parseUserAgent(header string) (string, string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return unknownAgent, unknownAgent
	}

	ua := useragent.New(header)
	osName := ua.OSInfo().Name
	if osName == "" {
		osName = unknownAgent
	}
	browser, _ := ua.Browser()
	if browser == "" {
		browser = unknownAgent
	}
	return osName, browser
}
