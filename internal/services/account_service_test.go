package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/realtime"
	apperrors "github.com/philsca/registrar/pkg/errors"
)

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func newAccountFixture(t *testing.T) (*gorm.DB, *AccountService, *recordingPublisher) {
	t.Helper()
	db := openServiceTestDB(t)
	provider, err := providers.NewLocalProvider(db, providers.LocalConfig{Clock: fixedClock})
	require.NoError(t, err)

	feed := &recordingPublisher{}
	svc, err := NewAccountService(db, provider, feed, WithAccountClock(fixedClock))
	require.NoError(t, err)
	return db, svc, feed
}

func TestAccountInitializeOnlyOnce(t *testing.T) {
	_, svc, _ := newAccountFixture(t)
	ctx := context.Background()

	required, err := svc.SetupRequired(ctx)
	require.NoError(t, err)
	require.True(t, required)

	admin, err := svc.Initialize(ctx, InitializeInput{Email: "Registrar@PhilSCA.edu.ph", DisplayName: "Registrar", Password: "Sup3r$ecret"})
	require.NoError(t, err)
	require.Equal(t, "registrar@philsca.edu.ph", admin.Email)

	required, err = svc.SetupRequired(ctx)
	require.NoError(t, err)
	require.False(t, required)

	_, err = svc.Initialize(ctx, InitializeInput{Email: "other@philsca.edu.ph", Password: "Sup3r$ecret"})
	require.ErrorIs(t, err, ErrSetupComplete)
}

func TestAccountLoginRecordsHistory(t *testing.T) {
	_, svc, feed := newAccountFixture(t)
	ctx := context.Background()

	admin, err := svc.Initialize(ctx, InitializeInput{Email: "registrar@philsca.edu.ph", DisplayName: "Registrar", Password: "Sup3r$ecret"})
	require.NoError(t, err)

	loggedIn, err := svc.Login(ctx, LoginInput{
		Email:     "registrar@philsca.edu.ph",
		Password:  "Sup3r$ecret",
		UserAgent: chromeOnWindows,
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)
	require.Equal(t, admin.ID, loggedIn.ID)

	history, err := svc.History(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, history[0].ID, 11)
	require.Equal(t, "Windows", history[0].OSUsed)
	require.Equal(t, "Chrome", history[0].BrowserUsed)
	require.Equal(t, "203.0.113.7", history[0].IPAddress)
	require.Contains(t, feed.paths(), realtime.HistoryPath(admin.ID, history[0].ID))

	_, err = svc.Login(ctx, LoginInput{Email: "registrar@philsca.edu.ph", Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	history, err = svc.History(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestAccountHistoryNewestFirst(t *testing.T) {
	db, svc, _ := newAccountFixture(t)
	ctx := context.Background()

	admin, err := svc.Initialize(ctx, InitializeInput{Email: "registrar@philsca.edu.ph", Password: "Sup3r$ecret"})
	require.NoError(t, err)

	for i, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		require.NoError(t, db.Create(&models.SignInHistory{
			ID:        id,
			AdminID:   admin.ID,
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	history, err := svc.History(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "ccccccccccc", history[0].ID)
	require.Equal(t, "aaaaaaaaaaa", history[2].ID)
}

func TestAccountDeleteRemovesHistoryAndAdmin(t *testing.T) {
	db, svc, _ := newAccountFixture(t)
	ctx := context.Background()

	admin, err := svc.Initialize(ctx, InitializeInput{Email: "registrar@philsca.edu.ph", Password: "Sup3r$ecret"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: admin.Email, Password: "Sup3r$ecret"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, admin.ID))

	var count int64
	require.NoError(t, db.Model(&models.SignInHistory{}).Count(&count).Error)
	require.Zero(t, count)
	_, err = svc.Profile(ctx, admin.ID)
	require.ErrorIs(t, err, ErrAdminNotFound)

	require.ErrorIs(t, svc.DeleteAccount(ctx, admin.ID), ErrAdminNotFound)
}

func TestParseUserAgentUnknown(t *testing.T) {
	osName, browser := parseUserAgent("")
	require.Equal(t, "Unknown", osName)
	require.Equal(t, "Unknown", browser)
}
