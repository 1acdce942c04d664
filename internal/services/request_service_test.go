package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/realtime"
)

func TestRequestServiceCreateRecordsSubmittedRequest(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "user-1", "", true)
	feed := &recordingPublisher{}

	svc, err := NewRequestService(db, feed)
	require.NoError(t, err)
	svc.now = fixedClock

	request, err := svc.Create(context.Background(), CreateRequestInput{
		UserID:       user.ID,
		DocumentType: "Diploma",
		Reason:       "Board exam",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, request.Status)
	require.Equal(t, user.StudentID, request.StudentNumber)
	require.Equal(t, user.Email, request.Email)
	require.Len(t, request.Logs, 1)
	require.Equal(t, "your request(Diploma) has been submitted", request.Logs[0].Action)
	require.Equal(t, []realtime.Path{realtime.RequestPath(user.ID, request.ID)}, feed.paths())

	_, err = svc.Create(context.Background(), CreateRequestInput{UserID: "ghost", DocumentType: "Diploma"})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequestServiceListOrdersByUpdatedAndFilters(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "user-1", "", true)
	other := seedUser(t, db, "user-2", "", true)

	old := seedRequest(t, db, user.ID, models.StatusSubmitted, fixedNow.Add(-72*time.Hour), fixedNow.Add(-72*time.Hour))
	recent := seedRequest(t, db, other.ID, models.StatusApproved, fixedNow.Add(-48*time.Hour), fixedNow.Add(-time.Hour))

	svc, err := NewRequestService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	all, err := svc.List(ctx, RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, recent.ID, all[0].ID)
	require.Equal(t, old.ID, all[1].ID)

	approved, err := svc.List(ctx, RequestFilter{Status: models.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, recent.ID, approved[0].ID)

	mine, err := svc.List(ctx, RequestFilter{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = svc.List(ctx, RequestFilter{Status: "Archived"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRequestServiceGetReturnsChronologicalLogs(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "user-1", "", true)
	request := seedRequest(t, db, user.ID, models.StatusApproved, fixedNow, fixedNow)

	require.NoError(t, db.Create(&models.RequestLog{RequestID: request.ID, Action: "second", Timestamp: fixedNow.Add(time.Minute)}).Error)
	require.NoError(t, db.Create(&models.RequestLog{RequestID: request.ID, Action: "first", Timestamp: fixedNow}).Error)

	svc, err := NewRequestService(db, nil)
	require.NoError(t, err)

	logs, err := svc.Logs(context.Background(), user.ID, request.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "first", logs[0].Action)
	require.Equal(t, "second", logs[1].Action)

	_, err = svc.Get(context.Background(), "user-2", request.ID)
	require.ErrorIs(t, err, ErrRequestNotFound)
}
