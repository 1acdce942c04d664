package models

import (
	"time"
)

// RequestStatus is the lifecycle state of a document request.
type RequestStatus string

const (
	StatusSubmitted   RequestStatus = "Submitted"
	StatusUnderReview RequestStatus = "Under Review"
	StatusApproved    RequestStatus = "Approved"
	StatusInProgress  RequestStatus = "In Progress"
	StatusCompleted   RequestStatus = "Completed"
	StatusCancelled   RequestStatus = "Cancelled"
	StatusClaimed     RequestStatus = "Claimed"
)

// StatusOrder is the fixed ordering used by the status selector.
var StatusOrder = []RequestStatus{
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusClaimed,
}

// Index returns the position of s in StatusOrder, or -1 when unknown.
func (s RequestStatus) Index() int {
	for i, candidate := range StatusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	return s.Index() >= 0
}

// Terminal reports whether no transition leaves s. Completed is not terminal: it moves to Claimed.
func (s RequestStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusClaimed
}

// AcceptsEstimate reports whether an estimated completion date is meaningful for s.
func (s RequestStatus) AcceptsEstimate() bool {
	return s != StatusCompleted && s != StatusClaimed
}

// CanTransition reports whether a request may move from s to next.
// The linear stages only move forward; Cancelled is reachable from any stage before
// Completed and Claimed only from Completed.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	switch next {
	case StatusCancelled:
		return s != StatusCompleted
	case StatusClaimed:
		return s == StatusCompleted
	default:
		return s != StatusCompleted && next.Index() > s.Index()
	}
}

// Request is a student's document request.
type Request struct {
	BaseModel

	UserID             string        `gorm:"size:36;not null;index" json:"user_id"`
	DocumentType       string        `gorm:"not null" json:"document_type"`
	Reason             string        `gorm:"type:text" json:"reason"`
	RequestDate        time.Time     `gorm:"index" json:"request_date"`
	Status             RequestStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	EstimateCompletion *time.Time    `json:"estimate_completion,omitempty"`
	PaymentImage       string        `json:"payment_image,omitempty"`
	PaymentImageName   string        `json:"payment_image_name,omitempty"`
	StudentNumber      string        `json:"student_number"`
	Email              string        `json:"email"`

	Logs []RequestLog `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"-"`
}

// RequestLog is one entry in a request's status history.
type RequestLog struct {
	BaseModel

	RequestID string    `gorm:"size:36;not null;index" json:"request_id"`
	Action    string    `gorm:"type:text;not null" json:"action"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}
