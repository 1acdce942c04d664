package models

import "time"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleAdmin MessageRole = "admin"
	RoleUser  MessageRole = "user"
)

// Message is one chat message in a student's conversation with the registrar.
type Message struct {
	BaseModel

	UserID    string      `gorm:"size:36;not null;index" json:"user_id"`
	Role      MessageRole `gorm:"type:varchar(16);not null" json:"role"`
	Body      string      `gorm:"column:message;type:text;not null" json:"message"`
	AdminRead bool        `gorm:"default:false;index" json:"admin_read"`
	UserRead  bool        `gorm:"default:false" json:"user_read"`
	Timestamp time.Time   `gorm:"index" json:"timestamp"`
}
