package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/push"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/metrics"
)

// Notification origins used for metrics.
const (
	OriginRequest = "request"
	OriginNews    = "news"
)

// NotifyInput describes a notification appended to a student's inbox.
type NotifyInput struct {
	UserID string
	// PushToken receives a best-effort push when set.
	PushToken string
	Title     string
	Message   string
	Route     string
	Origin    string
	Metadata  map[string]any
}

// NotificationService appends inbox notifications and mirrors them as push messages.
type NotificationService struct {
	db     *gorm.DB
	sender push.Sender
	feed   realtime.Publisher
	now    func() time.Time
}

// NotificationOption customises the NotificationService.
type NotificationOption func(*NotificationService)

// WithNotificationClock injects a custom time source.
func WithNotificationClock(clock func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		s.now = clockOrNow(clock)
	}
}

// NewNotificationService constructs a NotificationService. A nil sender disables push.
// Notify calls sender inline, so production wiring passes a push.Dispatcher.
func NewNotificationService(db *gorm.DB, sender push.Sender, feed realtime.Publisher, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if sender == nil {
		sender = push.Noop{}
	}
	svc := &NotificationService{db: db, sender: sender, feed: publisherOrNop(feed), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Notify writes the notification row and then attempts a push. Push failures never
// surface to the caller.
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	notification := models.Notification{
		UserID:    userID,
		Title:     input.Title,
		Message:   input.Message,
		Route:     input.Route,
		Read:      false,
		Timestamp: s.now(),
	}
	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, writeFailed("notification service: create notification", err)
	}

	origin := input.Origin
	if origin == "" {
		origin = OriginRequest
	}
	metrics.NotificationsCreated.WithLabelValues(origin).Inc()
	s.feed.Publish(realtime.Event{
		Path: realtime.NotificationPath(userID, notification.ID),
		Op:   realtime.OpCreate,
		Data: notification,
	})

	s.sendPush(ctx, input.PushToken, input.Title, input.Message, input.Route)
	return &notification, nil
}

// ListForUser returns a student's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, nil
}

func (s *NotificationService) sendPush(ctx context.Context, token, title, body, route string) {
	if strings.TrimSpace(token) == "" {
		metrics.PushDispatches.WithLabelValues("skipped").Inc()
		return
	}

	err := s.sender.Send(ctx, push.Message{To: token, Title: title, Body: body, Route: route})
	if err != nil {
		metrics.PushDispatches.WithLabelValues("dropped").Inc()
		logger.WithModule("push").Debug("push hand-off failed", zap.String("route", route), zap.Error(err))
		return
	}
	metrics.PushDispatches.WithLabelValues("queued").Inc()
}
