package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification routes for the requester's mobile app.
const (
	RouteMyRequests = "myrequests"
	RouteDashboard  = "dashboard"
)

// Notification is an entry in a student's inbox.
type Notification struct {
	BaseModel

	UserID    string         `gorm:"size:36;not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Route     string         `gorm:"type:varchar(64)" json:"route"`
	Read      bool           `gorm:"default:false;index" json:"read"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
}
