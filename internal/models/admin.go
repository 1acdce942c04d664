package models

import "time"

// Admin is a registrar staff account able to sign in to the dashboard.
type Admin struct {
	BaseModel

	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Password    string `gorm:"not null" json:"-"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`

	History []SignInHistory `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"-"`
}
