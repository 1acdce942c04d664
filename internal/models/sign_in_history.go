package models

import "time"

// SignInHistory records one successful admin login.
type SignInHistory struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	AdminID     string    `gorm:"size:36;not null;index" json:"admin_id"`
	OSUsed      string    `json:"os_used"`
	BrowserUsed string    `json:"browser_used"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the history table name explicit.
func (SignInHistory) TableName() string {
	return "sign_in_histories"
}
