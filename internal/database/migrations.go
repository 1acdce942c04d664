package database

import (
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
)

// AutoMigrate creates or updates the database schema for all collections.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.SignInHistory{},
		&models.User{},
		&models.Request{},
		&models.RequestLog{},
		&models.Notification{},
		&models.Message{},
		&models.News{},
		&models.PasswordResetToken{},
		&models.CacheEntry{},
	)
}
