package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/realtime"
)

// Conversation groups one student's messages with their profile.
type Conversation struct {
	UserID      string           `json:"userId"`
	StudentID   string           `json:"studentId"`
	PhotoURL    string           `json:"photoURL"`
	Active      bool             `json:"active"`
	Unread      int              `json:"unread"`
	LastMessage *models.Message  `json:"lastMessage,omitempty"`
	Messages    []models.Message `json:"messages"`
}

// MessageService serves the admin side of student conversations.
type MessageService struct {
	db   *gorm.DB
	feed realtime.Publisher
	now  func() time.Time
}

// MessageOption customises the MessageService.
type MessageOption func(*MessageService)

// WithMessageClock injects a custom time source.
func WithMessageClock(clock func() time.Time) MessageOption {
	return func(s *MessageService) {
		s.now = clockOrNow(clock)
	}
}

// NewMessageService constructs a MessageService.
func NewMessageService(db *gorm.DB, feed realtime.Publisher, opts ...MessageOption) (*MessageService, error) {
	if db == nil {
		return nil, errors.New("message service: db is required")
	}
	svc := &MessageService{db: db, feed: publisherOrNop(feed), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Conversations groups every message by student, newest conversation first.
// Messages from students without a profile row are skipped.
func (s *MessageService) Conversations(ctx context.Context) ([]Conversation, error) {
	ctx = ensureContext(ctx)

	var messages []models.Message
	if err := s.db.WithContext(ctx).Order("timestamp ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("message service: list messages: %w", err)
	}
	if len(messages) == 0 {
		return []Conversation{}, nil
	}

	grouped := make(map[string][]models.Message)
	userIDs := make([]string, 0)
	for _, message := range messages {
		if _, seen := grouped[message.UserID]; !seen {
			userIDs = append(userIDs, message.UserID)
		}
		grouped[message.UserID] = append(grouped[message.UserID], message)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("message service: load users: %w", err)
	}
	profiles := make(map[string]models.User, len(users))
	for _, user := range users {
		profiles[user.ID] = user
	}

	conversations := make([]Conversation, 0, len(grouped))
	for _, userID := range userIDs {
		profile, ok := profiles[userID]
		if !ok {
			continue
		}
		thread := grouped[userID]
		last := thread[len(thread)-1]
		conversations = append(conversations, Conversation{
			UserID:      userID,
			StudentID:   profile.StudentID,
			PhotoURL:    profile.PhotoURL,
			Active:      profile.Active,
			Unread:      countUnread(thread),
			LastMessage: &last,
			Messages:    thread,
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.Timestamp.After(conversations[j].LastMessage.Timestamp)
	})
	return conversations, nil
}

// Thread returns one student's messages in chronological order.
func (s *MessageService) Thread(ctx context.Context, userID string) ([]models.Message, error) {
	ctx = ensureContext(ctx)

	var messages []models.Message
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("timestamp ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("message service: load thread: %w", err)
	}
	return messages, nil
}

// MarkRead flags every message of the conversation as read by the admin in one
// bulk update and returns the number of messages changed.
func (s *MessageService) MarkRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrUserNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("user_id = ? AND admin_read = ?", userID, false).
		UpdateColumn("admin_read", true)
	if result.Error != nil {
		return 0, writeFailed("message service: mark read", result.Error)
	}

	if result.RowsAffected > 0 {
		s.feed.Publish(realtime.Event{
			Path: realtime.Join(realtime.CollectionMessages, userID),
			Op:   realtime.OpUpdate,
			Data: map[string]any{"adminRead": true},
		})
	}
	return result.RowsAffected, nil
}

// Send appends an admin-authored message to the conversation.
func (s *MessageService) Send(ctx context.Context, userID, text string) (*models.Message, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	message := models.Message{
		UserID:    userID,
		Role:      models.RoleAdmin,
		Body:      text,
		AdminRead: true,
		UserRead:  false,
		Timestamp: s.now(),
	}
	message.ID = models.NewID()

	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, writeFailed("message service: send message", err)
	}

	s.feed.Publish(realtime.Event{
		Path: realtime.MessagePath(userID, message.ID),
		Op:   realtime.OpCreate,
		Data: message,
	})
	return &message, nil
}

// UnreadTotal counts every message not yet read by an admin.
func (s *MessageService) UnreadTotal(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("admin_read = ?", false).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("message service: count unread: %w", err)
	}
	return total, nil
}

func countUnread(messages []models.Message) int {
	unread := 0
	for _, message := range messages {
		if !message.AdminRead {
			unread++
		}
	}
	return unread
}
