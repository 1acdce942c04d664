package models

// User is a student requester registered through the mobile app.
type User struct {
	BaseModel

	StudentID     string `gorm:"index" json:"student_id"`
	Email         string `gorm:"index" json:"email"`
	PhotoURL      string `json:"photo_url"`
	Active        bool   `gorm:"default:false;index" json:"active"`
	ExpoPushToken string `json:"-"`
}
