package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
)

func TestMustOpenTestDBRunsSeeds(t *testing.T) {
	db := MustOpenTestDB(t, WithAutoMigrate(), WithSeed(func(tx *gorm.DB) error {
		return tx.Create(&models.User{StudentID: "2021-00042", Email: "seeded@example.com"}).Error
	}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestMustOpenTestDBIsolatesTests(t *testing.T) {
	first := MustOpenTestDB(t, WithAutoMigrate())
	second := MustOpenTestDB(t, WithAutoMigrate())

	require.NoError(t, first.Create(&models.User{Email: "only-first@example.com"}).Error)

	var count int64
	require.NoError(t, second.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}
