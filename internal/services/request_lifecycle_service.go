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
	"github.com/philsca/registrar/pkg/metrics"
)

// UpdateStatusInput is an operator edit of a request.
type UpdateStatusInput struct {
	UserID             string
	RequestID          string
	Status             models.RequestStatus
	EstimateCompletion *time.Time
}

// StatusOption is one entry of the status selector.
type StatusOption struct {
	Status   models.RequestStatus `json:"status"`
	Disabled bool                 `json:"disabled"`
}

// PaymentImageView is returned when an operator opens a payment image.
type PaymentImageView struct {
	URL    string               `json:"url"`
	Name   string               `json:"name"`
	Status models.RequestStatus `json:"status"`
}

// RequestLifecycleService applies status and estimate changes to requests and informs
// the requester through the request log, an inbox notification and a push message.
// The individual writes are not transactional; a failure stops the sequence and
// earlier writes remain.
type RequestLifecycleService struct {
	db       *gorm.DB
	notifier *NotificationService
	feed     realtime.Publisher
	now      func() time.Time
}

// LifecycleOption customises the RequestLifecycleService.
type LifecycleOption func(*RequestLifecycleService)

// WithLifecycleClock injects a custom time source.
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(s *RequestLifecycleService) {
		s.now = clockOrNow(clock)
	}
}

// NewRequestLifecycleService constructs the lifecycle manager.
func NewRequestLifecycleService(db *gorm.DB, notifier *NotificationService, feed realtime.Publisher, opts ...LifecycleOption) (*RequestLifecycleService, error) {
	if db == nil {
		return nil, errors.New("request lifecycle service: db is required")
	}
	if notifier == nil {
		return nil, errors.New("request lifecycle service: notifier is required")
	}
	svc := &RequestLifecycleService{db: db, notifier: notifier, feed: publisherOrNop(feed), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// UpdateStatus applies an edit. When an estimate is supplied and the target status
// accepts one, the estimate is written together with any allowed status change and
// only the estimate is announced. Otherwise the status is written when it differs
// from the current one.
func (s *RequestLifecycleService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Request, error) {
	ctx = ensureContext(ctx)
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	request, err := s.loadRequest(ctx, input.UserID, input.RequestID)
	if err != nil {
		return nil, err
	}

	if input.EstimateCompletion != nil && input.Status.AcceptsEstimate() {
		// Completed and closed requests no longer take estimates.
		if request.Status.Terminal() || request.Status == models.StatusCompleted {
			return nil, ErrTransitionNotAllowed
		}
		if input.Status != request.Status && !request.Status.CanTransition(input.Status) {
			return nil, ErrTransitionNotAllowed
		}

		estimate := *input.EstimateCompletion
		updates := map[string]any{"estimate_completion": estimate}
		if input.Status != request.Status {
			updates["status"] = input.Status
		}
		message := fmt.Sprintf("The estimated completion date is now set for your request(%s) to %s.",
			request.DocumentType, formatLongDateTime(estimate))

		if err := s.writeRequest(ctx, request, updates); err != nil {
			return nil, err
		}
		request.EstimateCompletion = &estimate
		request.Status = input.Status

		if err := s.announce(ctx, request, message); err != nil {
			return nil, err
		}
		metrics.StatusTransitions.WithLabelValues("estimate", string(input.Status)).Inc()
		return request, nil
	}

	if input.Status == request.Status {
		return request, nil
	}
	if !request.Status.CanTransition(input.Status) {
		return nil, ErrTransitionNotAllowed
	}

	if err := s.writeRequest(ctx, request, map[string]any{"status": input.Status}); err != nil {
		return nil, err
	}
	request.Status = input.Status

	if err := s.announce(ctx, request, statusMessage(input.Status, request.DocumentType)); err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues("status", string(input.Status)).Inc()
	return request, nil
}

// OpenPaymentImage returns the payment image of a request. Opening the image of a
// Submitted request moves it to Under Review; later opens change nothing.
func (s *RequestLifecycleService) OpenPaymentImage(ctx context.Context, userID, requestID string) (*PaymentImageView, error) {
	ctx = ensureContext(ctx)

	request, err := s.loadRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(request.PaymentImage) == "" {
		return nil, ErrNoPaymentImage
	}

	if request.Status == models.StatusSubmitted {
		if err := s.writeRequest(ctx, request, map[string]any{"status": models.StatusUnderReview}); err != nil {
			return nil, err
		}
		request.Status = models.StatusUnderReview

		if err := s.announce(ctx, request, "your request is now under review"); err != nil {
			return nil, err
		}
		metrics.StatusTransitions.WithLabelValues("review", string(models.StatusUnderReview)).Inc()
	}

	return &PaymentImageView{URL: request.PaymentImage, Name: request.PaymentImageName, Status: request.Status}, nil
}

// StatusOptions lists every status in the fixed order, disabling those UpdateStatus
// would reject as a move from current.
func StatusOptions(current models.RequestStatus) []StatusOption {
	options := make([]StatusOption, 0, len(models.StatusOrder))
	for _, status := range models.StatusOrder {
		options = append(options, StatusOption{Status: status, Disabled: !current.CanTransition(status)})
	}
	return options
}

// StatusOptions loads a request and returns its selector options.
func (s *RequestLifecycleService) StatusOptions(ctx context.Context, userID, requestID string) ([]StatusOption, error) {
	request, err := s.loadRequest(ensureContext(ctx), userID, requestID)
	if err != nil {
		return nil, err
	}
	return StatusOptions(request.Status), nil
}

func statusMessage(status models.RequestStatus, documentType string) string {
	switch status {
	case models.StatusCompleted:
		return fmt.Sprintf("your request is now %s you can now get your %s within our office hours", status, documentType)
	case models.StatusClaimed:
		return fmt.Sprintf("you have claimed your %s. Thank you for your patience and cooperation", documentType)
	default:
		return fmt.Sprintf("your request is now %s", status)
	}
}

func (s *RequestLifecycleService) loadRequest(ctx context.Context, userID, requestID string) (*models.Request, error) {
	userID = strings.TrimSpace(userID)
	requestID = strings.TrimSpace(requestID)
	if userID == "" || requestID == "" {
		return nil, ErrRequestNotFound
	}

	var request models.Request
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", requestID, userID).Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request lifecycle service: load request: %w", err)
	}
	return &request, nil
}

func (s *RequestLifecycleService) writeRequest(ctx context.Context, request *models.Request, updates map[string]any) error {
	now := s.now()
	updates["updated_at"] = now

	if err := s.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", request.ID).
		UpdateColumns(updates).Error; err != nil {
		return writeFailed("request lifecycle service: update request", err)
	}
	request.UpdatedAt = now

	s.feed.Publish(realtime.Event{
		Path: realtime.RequestPath(request.UserID, request.ID),
		Op:   realtime.OpUpdate,
		Data: updates,
	})
	return nil
}

// announce appends the request log entry, the inbox notification and the push.
func (s *RequestLifecycleService) announce(ctx context.Context, request *models.Request, message string) error {
	entry := models.RequestLog{
		RequestID: request.ID,
		Action:    message,
		Timestamp: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return writeFailed("request lifecycle service: append log", err)
	}
	s.feed.Publish(realtime.Event{
		Path: realtime.RequestLogPath(request.UserID, request.ID, entry.ID),
		Op:   realtime.OpCreate,
		Data: entry,
	})

	var user models.User
	pushToken := ""
	if err := s.db.WithContext(ctx).Select("id", "expo_push_token").Take(&user, "id = ?", request.UserID).Error; err == nil {
		pushToken = user.ExpoPushToken
	}

	_, err := s.notifier.Notify(ctx, NotifyInput{
		UserID:    request.UserID,
		PushToken: pushToken,
		Title:     fmt.Sprintf("Update on your request(%s)", request.DocumentType),
		Message:   message,
		Route:     models.RouteMyRequests,
		Origin:    OriginRequest,
		Metadata:  map[string]any{"requestId": request.ID},
	})
	return err
}
