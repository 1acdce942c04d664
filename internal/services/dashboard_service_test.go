package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/philsca/registrar/internal/models"
)

func TestDashboardSummary(t *testing.T) {
	db := openServiceTestDB(t)
	seedUser(t, db, "user-1", "", true)
	seedUser(t, db, "user-2", "", false)
	seedUser(t, db, "user-3", "", true)
	seedUser(t, db, "user-4", "", false)

	today := fixedNow.Add(-2 * time.Hour)
	jan := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)
	lastYear := time.Date(2024, time.December, 31, 8, 0, 0, 0, time.UTC)

	seedRequest(t, db, "user-1", models.StatusSubmitted, today, fixedNow.Add(-3*time.Hour))
	latest := seedRequest(t, db, "user-2", models.StatusCompleted, jan, fixedNow.Add(-time.Minute))
	second := seedRequest(t, db, "user-3", models.StatusApproved, jan, fixedNow.Add(-2*time.Minute))
	seedRequest(t, db, "user-1", models.StatusCompleted, lastYear, lastYear)

	svc, err := NewDashboardService(db, WithDashboardClock(fixedClock))
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), 2025)
	require.NoError(t, err)

	require.Equal(t, 2025, summary.Year)
	require.EqualValues(t, 1, summary.TodayRequests)
	require.EqualValues(t, 4, summary.TotalRequests)
	require.EqualValues(t, 2, summary.CompletedRequests)

	require.Len(t, summary.Monthly, 12)
	require.Equal(t, "Jan", summary.Monthly[0].Month)
	require.EqualValues(t, 2, summary.Monthly[0].Request)
	require.Equal(t, "Apr", summary.Monthly[3].Month)
	require.EqualValues(t, 1, summary.Monthly[3].Request)
	require.EqualValues(t, 0, summary.Monthly[11].Request)

	require.Len(t, summary.Recent, 3)
	require.Equal(t, latest.ID, summary.Recent[0].ID)
	require.Equal(t, second.ID, summary.Recent[1].ID)

	require.NotNil(t, summary.ActiveUsersPercent)
	require.InDelta(t, 50.0, *summary.ActiveUsersPercent, 0.001)
	require.NotNil(t, summary.CompletedPercent)
	require.InDelta(t, 50.0, *summary.CompletedPercent, 0.001)

	require.Equal(t, 2000, summary.YearOptions[0])
	require.Equal(t, 2025, summary.YearOptions[len(summary.YearOptions)-1])

	previous, err := svc.Summary(context.Background(), 2024)
	require.NoError(t, err)
	require.EqualValues(t, 1, previous.Monthly[11].Request)
}

func TestDashboardSummaryEmptyCollections(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewDashboardService(db, WithDashboardClock(fixedClock))
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), 1999)
	require.NoError(t, err)
	require.Equal(t, 2025, summary.Year)
	require.Nil(t, summary.ActiveUsersPercent)
	require.Nil(t, summary.CompletedPercent)
	require.Empty(t, summary.Recent)
	require.Len(t, summary.Monthly, 12)
}
