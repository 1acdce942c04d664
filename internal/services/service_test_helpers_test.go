package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/database/testutil"
	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/push"
	"github.com/philsca/registrar/internal/realtime"
)

var fixedNow = time.Date(2025, time.April, 29, 15, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

type recordingSender struct {
	mu       sync.Mutex
	messages []push.Message
	err      error
}

func (r *recordingSender) Send(_ context.Context, msg push.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingSender) sent() []push.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]push.Message(nil), r.messages...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingPublisher) Publish(event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) paths() []realtime.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]realtime.Path, 0, len(r.events))
	for _, event := range r.events {
		paths = append(paths, event.Path)
	}
	return paths
}

func seedUser(t *testing.T, db *gorm.DB, id, pushToken string, active bool) models.User {
	t.Helper()
	user := models.User{
		BaseModel:     models.BaseModel{ID: id},
		StudentID:     "2021-" + id,
		Email:         id + "@philsca.edu.ph",
		PhotoURL:      "https://example.com/" + id + ".png",
		Active:        active,
		ExpoPushToken: pushToken,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedRequest(t *testing.T, db *gorm.DB, userID string, status models.RequestStatus, requestDate, updatedAt time.Time) models.Request {
	t.Helper()
	request := models.Request{
		UserID:       userID,
		DocumentType: "Transcript of Records",
		Reason:       "Employment",
		RequestDate:  requestDate,
		Status:       status,
		PaymentImage: "https://example.com/receipt.png",
	}
	request.CreatedAt = requestDate
	request.UpdatedAt = updatedAt
	require.NoError(t, db.Create(&request).Error)
	return request
}

func newTestNotifier(t *testing.T, db *gorm.DB, sender push.Sender, feed realtime.Publisher) *NotificationService {
	t.Helper()
	svc, err := NewNotificationService(db, sender, feed, WithNotificationClock(fixedClock))
	require.NoError(t, err)
	return svc
}

var errPushDown = errors.New("push endpoint unavailable")
