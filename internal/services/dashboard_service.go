package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
)

const (
	firstSelectableYear = 2000
	recentRequestLimit  = 3
)

// MonthlyCount is one bar of the requests-per-month chart.
type MonthlyCount struct {
	Month   string `json:"month"`
	Request int64  `json:"request"`
}

// DashboardSummary aggregates the request and user collections for the dashboard.
type DashboardSummary struct {
	Year               int              `json:"year"`
	YearOptions        []int            `json:"yearOptions"`
	TodayRequests      int64            `json:"todayRequests"`
	Monthly            []MonthlyCount   `json:"monthly"`
	Recent             []models.Request `json:"recent"`
	TotalRequests      int64            `json:"totalRequests"`
	CompletedRequests  int64            `json:"completedRequests"`
	TotalUsers         int64            `json:"totalUsers"`
	ActiveUsers        int64            `json:"activeUsers"`
	ActiveUsersPercent *float64         `json:"activeUsersPercent"`
	CompletedPercent   *float64         `json:"completedPercent"`
}

// DashboardService computes dashboard metrics.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// DashboardOption customises the DashboardService.
type DashboardOption func(*DashboardService)

// WithDashboardClock injects a custom time source. The clock's location defines
// calendar days and months.
func WithDashboardClock(clock func() time.Time) DashboardOption {
	return func(s *DashboardService) {
		s.now = clockOrNow(clock)
	}
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(db *gorm.DB, opts ...DashboardOption) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	svc := &DashboardService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Summary computes the dashboard for the given year. A year outside
// 2000..current falls back to the current year.
func (s *DashboardService) Summary(ctx context.Context, year int) (*DashboardSummary, error) {
	ctx = ensureContext(ctx)
	now := s.now()
	loc := now.Location()
	if year < firstSelectableYear || year > now.Year() {
		year = now.Year()
	}

	summary := &DashboardSummary{
		Year:        year,
		YearOptions: YearOptions(now),
	}

	var dates []models.Request
	if err := s.db.WithContext(ctx).Model(&models.Request{}).
		Select("request_date", "status").
		Find(&dates).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: load requests: %w", err)
	}

	monthly := make([]int64, 12)
	todayYear, todayMonth, todayDay := now.Date()
	for _, request := range dates {
		local := request.RequestDate.In(loc)
		y, m, d := local.Date()
		if y == todayYear && m == todayMonth && d == todayDay {
			summary.TodayRequests++
		}
		if y == year {
			monthly[m-1]++
		}
		if request.Status == models.StatusCompleted {
			summary.CompletedRequests++
		}
	}
	summary.TotalRequests = int64(len(dates))

	summary.Monthly = make([]MonthlyCount, 0, 12)
	for i, count := range monthly {
		summary.Monthly = append(summary.Monthly, MonthlyCount{
			Month:   time.Month(i + 1).String()[:3],
			Request: count,
		})
	}

	if err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(recentRequestLimit).
		Find(&summary.Recent).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: load recent requests: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&summary.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("active = ?", true).Count(&summary.ActiveUsers).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count active users: %w", err)
	}

	summary.ActiveUsersPercent = percentage(summary.ActiveUsers, summary.TotalUsers)
	summary.CompletedPercent = percentage(summary.CompletedRequests, summary.TotalRequests)
	return summary, nil
}

// YearOptions lists every selectable year from 2000 through the year of now.
func YearOptions(now time.Time) []int {
	years := make([]int, 0, now.Year()-firstSelectableYear+1)
	for y := firstSelectableYear; y <= now.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// percentage returns part/total x 100, or nil when total is zero.
func percentage(part, total int64) *float64 {
	if total == 0 {
		return nil
	}
	value := float64(part) / float64(total) * 100
	return &value
}
