package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/realtime"
)

// RequestFilter narrows the request table.
type RequestFilter struct {
	Status models.RequestStatus
	UserID string
}

// CreateRequestInput is a requester's document request.
type CreateRequestInput struct {
	UserID           string
	DocumentType     string
	Reason           string
	PaymentImage     string
	PaymentImageName string
}

// RequestService reads the request collection and accepts intake of new requests.
type RequestService struct {
	db   *gorm.DB
	feed realtime.Publisher
	now  func() time.Time
}

// NewRequestService constructs a RequestService.
func NewRequestService(db *gorm.DB, feed realtime.Publisher) (*RequestService, error) {
	if db == nil {
		return nil, errors.New("request service: db is required")
	}
	return &RequestService{db: db, feed: publisherOrNop(feed), now: time.Now}, nil
}

// List returns requests, most recently updated first.
func (s *RequestService) List(ctx context.Context, filter RequestFilter) ([]models.Request, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Request{})
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		query = query.Where("status = ?", filter.Status)
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var rows []models.Request
	if err := query.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("request service: list requests: %w", err)
	}
	return rows, nil
}

// Get returns one request with its log in chronological order.
func (s *RequestService) Get(ctx context.Context, userID, requestID string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	var request models.Request
	err := s.db.WithContext(ctx).
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC") }).
		Where("id = ? AND user_id = ?", strings.TrimSpace(requestID), strings.TrimSpace(userID)).
		Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request service: get request: %w", err)
	}
	return &request, nil
}

// Logs returns the request log in chronological order.
func (s *RequestService) Logs(ctx context.Context, userID, requestID string) ([]models.RequestLog, error) {
	request, err := s.Get(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	return request.Logs, nil
}

// Create records a Submitted request for an existing user.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*models.Request, error) {
	ctx = ensureContext(ctx)

	documentType := strings.TrimSpace(input.DocumentType)
	if documentType == "" {
		return nil, errors.New("request service: document type is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(input.UserID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request service: load user: %w", err)
	}

	now := s.now()
	request := models.Request{
		UserID:           user.ID,
		DocumentType:     documentType,
		Reason:           strings.TrimSpace(input.Reason),
		RequestDate:      now,
		Status:           models.StatusSubmitted,
		PaymentImage:     strings.TrimSpace(input.PaymentImage),
		PaymentImageName: strings.TrimSpace(input.PaymentImageName),
		StudentNumber:    user.StudentID,
		Email:            user.Email,
	}
	request.CreatedAt = now
	request.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, writeFailed("request service: create request", err)
	}

	entry := models.RequestLog{
		RequestID: request.ID,
		Action:    fmt.Sprintf("your request(%s) has been submitted", documentType),
		Timestamp: now,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, writeFailed("request service: append log", err)
	}
	request.Logs = []models.RequestLog{entry}

	s.feed.Publish(realtime.Event{
		Path: realtime.RequestPath(request.UserID, request.ID),
		Op:   realtime.OpCreate,
		Data: request,
	})
	return &request, nil
}
