package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/cache"
	testutil "github.com/philsca/registrar/internal/database/testutil"
	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/services"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2025, 4, 29, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	provider, err := providers.NewLocalProvider(db, providers.LocalConfig{})
	require.NoError(t, err)
	resets, err := services.NewPasswordResetService(db, nil, provider, services.WithResetClock(clock))
	require.NoError(t, err)

	usedAt := now.Add(-time.Minute)
	require.NoError(t, db.Create(&models.PasswordResetToken{AdminID: "admin-1", TokenHash: "expired", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.PasswordResetToken{AdminID: "admin-1", TokenHash: "used", ExpiresAt: now.Add(time.Hour), UsedAt: &usedAt}).Error)
	require.NoError(t, db.Create(&models.PasswordResetToken{AdminID: "admin-1", TokenHash: "active", ExpiresAt: now.Add(time.Hour)}).Error)

	store := cache.NewDatabaseStore(db)
	require.NoError(t, db.Create(&models.CacheEntry{Key: "stale", Value: []byte("1"), ExpiresAt: now.Add(-time.Second)}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{Key: "fresh", Value: []byte("1"), ExpiresAt: now.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{Key: "forever", Value: []byte("1")}).Error)

	c := NewCleaner(resets, store,
		WithNow(clock),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, c.RunOnce(context.Background()))

	var tokens []models.PasswordResetToken
	require.NoError(t, db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	require.Equal(t, "active", tokens[0].TokenHash)

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Order("key").Pluck("key", &keys).Error)
	require.Equal(t, []string{"forever", "fresh"}, keys)
}

type failingPurger struct{ err error }

func (p failingPurger) PurgeExpired(context.Context) (int64, error) { return 0, p.err }

type failingCache struct{ err error }

func (p failingCache) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, p.err }

func TestCleanerRunOnceCombinesErrors(t *testing.T) {
	tokenErr := errors.New("tokens unavailable")
	cacheErr := errors.New("cache unavailable")

	c := NewCleaner(failingPurger{err: tokenErr}, failingCache{err: cacheErr})
	err := c.RunOnce(context.Background())
	require.ErrorIs(t, err, tokenErr)
	require.ErrorIs(t, err, cacheErr)
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	c := NewCleaner(failingPurger{}, failingCache{},
		WithCron(scheduler),
		WithTokenSchedule("*/5 * * * *"),
		WithCacheSchedule("@daily"),
	)

	require.NoError(t, c.Start())
	defer c.Stop()
	require.Len(t, scheduler.Entries(), 2)
}

func TestCleanerStartRejectsInvalidSchedule(t *testing.T) {
	c := NewCleaner(failingPurger{}, nil, WithTokenSchedule("not a schedule"))
	require.Error(t, c.Start())
}

func TestCleanerWithoutJobs(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
}
