// Package testutil opens throwaway SQLite databases for package tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/database"
)

// TestDBOption customises MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	migrate bool
	seeds   []func(*gorm.DB) error
}

// WithAutoMigrate creates every registrar table after opening.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.migrate = true
	}
}

// WithSeed runs fn against the database once it is open and migrated.
func WithSeed(fn func(*gorm.DB) error) TestDBOption {
	return func(cfg *testDBConfig) {
		if fn != nil {
			cfg.seeds = append(cfg.seeds, fn)
		}
	}
}

// MustOpenTestDB opens an in-memory database private to t. Its name embeds the test
// name so parallel tests never share rows. The handle is closed through t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	var cfg testDBConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if cfg.migrate {
		require.NoError(t, database.Migrate(db))
	}
	for _, seed := range cfg.seeds {
		require.NoError(t, seed(db))
	}
	return db
}
