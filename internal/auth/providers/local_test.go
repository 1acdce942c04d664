package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/database/testutil"
	"github.com/philsca/registrar/internal/models"
)

func newLocalProvider(t *testing.T, db *gorm.DB, cfg LocalConfig) *LocalProvider {
	t.Helper()
	provider, err := NewLocalProvider(db, cfg)
	require.NoError(t, err)
	return provider
}

func TestRegisterAndAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	provider := newLocalProvider(t, db, LocalConfig{Clock: func() time.Time { return current }})
	ctx := context.Background()

	admin, err := provider.Register(ctx, RegisterInput{
		Email:       " Registrar@PhilSCA.edu.ph ",
		DisplayName: "Registrar",
		Password:    "Str0ng!Pass",
	})
	require.NoError(t, err)
	require.Equal(t, "registrar@philsca.edu.ph", admin.Email)
	require.NotEqual(t, "Str0ng!Pass", admin.Password)

	result, err := provider.Authenticate(ctx, "REGISTRAR@philsca.edu.ph", "Str0ng!Pass")
	require.NoError(t, err)
	require.Equal(t, admin.ID, result.ID)

	var stored models.Admin
	require.NoError(t, db.Take(&stored, "id = ?", admin.ID).Error)
	require.NotNil(t, stored.LastLoginAt)
	require.True(t, stored.LastLoginAt.Equal(current))

	_, err = provider.Register(ctx, RegisterInput{Email: "registrar@philsca.edu.ph", Password: "x"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := newLocalProvider(t, db, LocalConfig{})

	_, err := provider.Authenticate(context.Background(), "nobody@philsca.edu.ph", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = provider.Authenticate(context.Background(), "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateLocksAfterRepeatedFailures(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	provider := newLocalProvider(t, db, LocalConfig{
		LockoutThreshold: 2,
		LockoutDuration:  10 * time.Minute,
		Clock:            func() time.Time { return current },
	})
	ctx := context.Background()

	_, err := provider.Register(ctx, RegisterInput{Email: "bob@philsca.edu.ph", Password: "Correct#123"})
	require.NoError(t, err)

	_, err = provider.Authenticate(ctx, "bob@philsca.edu.ph", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = provider.Authenticate(ctx, "bob@philsca.edu.ph", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)

	_, err = provider.Authenticate(ctx, "bob@philsca.edu.ph", "Correct#123")
	require.ErrorIs(t, err, ErrAccountLocked)

	current = current.Add(11 * time.Minute)
	_, err = provider.Authenticate(ctx, "bob@philsca.edu.ph", "Correct#123")
	require.NoError(t, err)
}

func TestSetPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := newLocalProvider(t, db, LocalConfig{})
	ctx := context.Background()

	admin, err := provider.Register(ctx, RegisterInput{Email: "carol@philsca.edu.ph", Password: "Old#Pass1"})
	require.NoError(t, err)

	require.NoError(t, provider.SetPassword(ctx, admin.ID, "New#Pass1"))

	_, err = provider.Authenticate(ctx, "carol@philsca.edu.ph", "Old#Pass1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = provider.Authenticate(ctx, "carol@philsca.edu.ph", "New#Pass1")
	require.NoError(t, err)

	require.ErrorIs(t, provider.SetPassword(ctx, "missing", "New#Pass1"), ErrInvalidCredentials)
}
