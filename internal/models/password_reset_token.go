package models

import "time"

// PasswordResetToken stores the hash of an emailed reset token.
type PasswordResetToken struct {
	BaseModel

	AdminID   string     `gorm:"size:36;not null;index" json:"admin_id"`
	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}
