// Package seed fills a database with demo students, document requests, chat
// threads and announcements for local development.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/pkg/crypto"
)

// DocumentTypes lists the documents students commonly request.
var DocumentTypes = []string{
	"Transcript of Records",
	"Certificate of Enrollment",
	"Certificate of Grades",
	"Good Moral Certificate",
	"Honorable Dismissal",
	"Diploma",
}

// Options controls how much data a Factory generates.
type Options struct {
	Students        int
	RequestsPerUser int
	MessagesPerUser int
	News            int
	AdminEmail      string
	AdminPassword   string
	MaxDays         int
	Seed            int64
	Now             func() time.Time
}

// Summary reports how many rows a run inserted.
type Summary struct {
	Admins   int
	Students int
	Requests int
	Logs     int
	Messages int
	News     int
}

// Factory builds registrar records and persists them.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewFactory binds a factory to db. A zero Seed picks a time-based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 60
	}
	seed := opts.Seed
	if seed == 0 {
		seed = opts.Now().UnixNano()
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed)}
}

// Run inserts the configured amount of demo data in a single transaction.
func (f *Factory) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if email := strings.TrimSpace(f.opts.AdminEmail); email != "" {
			created, err := f.ensureAdmin(tx, email)
			if err != nil {
				return err
			}
			if created {
				summary.Admins++
			}
		}

		for i := 0; i < f.opts.Students; i++ {
			user := f.BuildUser()
			if err := tx.Create(user).Error; err != nil {
				return fmt.Errorf("seed: create student: %w", err)
			}
			summary.Students++

			for j := 0; j < f.opts.RequestsPerUser; j++ {
				request, logs := f.BuildRequest(user)
				if err := tx.Create(request).Error; err != nil {
					return fmt.Errorf("seed: create request: %w", err)
				}
				for k := range logs {
					logs[k].RequestID = request.ID
				}
				if len(logs) > 0 {
					if err := tx.Create(&logs).Error; err != nil {
						return fmt.Errorf("seed: create request logs: %w", err)
					}
				}
				summary.Requests++
				summary.Logs += len(logs)
			}

			messages := f.BuildConversation(user, f.opts.MessagesPerUser)
			if len(messages) > 0 {
				if err := tx.Create(&messages).Error; err != nil {
					return fmt.Errorf("seed: create messages: %w", err)
				}
				summary.Messages += len(messages)
			}
		}

		for i := 0; i < f.opts.News; i++ {
			if err := tx.Create(f.BuildNews()).Error; err != nil {
				return fmt.Errorf("seed: create news: %w", err)
			}
			summary.News++
		}
		return nil
	})
	return summary, err
}

func (f *Factory) ensureAdmin(tx *gorm.DB, email string) (bool, error) {
	email = strings.ToLower(email)

	var count int64
	if err := tx.Model(&models.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("seed: lookup admin: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	password := f.opts.AdminPassword
	if password == "" {
		return false, fmt.Errorf("seed: admin password is required")
	}
	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("seed: hash admin password: %w", err)
	}

	admin := &models.Admin{Email: email, Password: hashed, DisplayName: f.faker.Name()}
	if err := tx.Create(admin).Error; err != nil {
		return false, fmt.Errorf("seed: create admin: %w", err)
	}
	return true, nil
}

// BuildUser returns an unsaved student. Roughly a third are still pending activation.
func (f *Factory) BuildUser() *models.User {
	user := &models.User{
		StudentID: f.faker.Numerify("20##-#####"),
		Email:     strings.ToLower(f.faker.Email()),
		PhotoURL:  fmt.Sprintf("https://picsum.photos/seed/%s/200/200", f.faker.UUID()),
		Active:    f.faker.Number(0, 2) > 0,
	}
	if f.faker.Bool() {
		user.ExpoPushToken = fmt.Sprintf("ExponentPushToken[%s]", f.faker.LetterN(22))
	}
	return user
}

// BuildRequest returns an unsaved request for user along with the status history
// that leads to its current state.
func (f *Factory) BuildRequest(user *models.User) (*models.Request, []models.RequestLog) {
	submitted := f.pastTime()
	documentType := f.faker.RandomString(DocumentTypes)

	request := &models.Request{
		UserID:        user.ID,
		DocumentType:  documentType,
		Reason:        f.faker.Sentence(8),
		RequestDate:   submitted,
		Status:        models.StatusSubmitted,
		StudentNumber: user.StudentID,
		Email:         user.Email,
	}

	target := models.StatusOrder[f.faker.Number(0, len(models.StatusOrder)-1)]
	path := statusPath(target)

	logs := make([]models.RequestLog, 0, len(path))
	at := submitted
	for _, status := range path[1:] {
		at = at.Add(time.Duration(f.faker.Number(1, 48)) * time.Hour)
		logs = append(logs, models.RequestLog{
			Action:    fmt.Sprintf("your request is now %s", status),
			Timestamp: at,
		})
	}
	request.Status = path[len(path)-1]

	if request.Status.AcceptsEstimate() && !request.Status.Terminal() && f.faker.Bool() {
		estimate := submitted.AddDate(0, 0, f.faker.Number(3, 14))
		request.EstimateCompletion = &estimate
	}
	return request, logs
}

// BuildConversation returns count unsaved messages alternating between student and
// admin, oldest first.
func (f *Factory) BuildConversation(user *models.User, count int) []models.Message {
	if count <= 0 {
		return nil
	}

	messages := make([]models.Message, 0, count)
	at := f.pastTime()
	for i := 0; i < count; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAdmin
		}
		at = at.Add(time.Duration(f.faker.Number(1, 180)) * time.Minute)
		messages = append(messages, models.Message{
			UserID:    user.ID,
			Role:      role,
			Body:      f.faker.Sentence(f.faker.Number(4, 14)),
			AdminRead: role == models.RoleAdmin || i < count-1,
			UserRead:  role == models.RoleUser,
			Timestamp: at,
		})
	}
	return messages
}

// BuildNews returns an unsaved text-only announcement.
func (f *Factory) BuildNews() *models.News {
	created := f.pastTime()
	return &models.News{
		ID:          crypto.ShortID(11),
		Title:       f.faker.Sentence(5),
		Description: f.faker.Paragraph(1, 3, 12, "\n"),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func (f *Factory) pastTime() time.Time {
	now := f.opts.Now()
	return f.faker.DateRange(now.AddDate(0, 0, -f.opts.MaxDays), now)
}

// statusPath returns the sequence of statuses a request passes through to reach target.
func statusPath(target models.RequestStatus) []models.RequestStatus {
	switch target {
	case models.StatusCancelled:
		return []models.RequestStatus{models.StatusSubmitted, models.StatusUnderReview, models.StatusCancelled}
	case models.StatusClaimed:
		return append(append([]models.RequestStatus(nil), models.StatusOrder[:models.StatusCompleted.Index()+1]...), models.StatusClaimed)
	default:
		return append([]models.RequestStatus(nil), models.StatusOrder[:target.Index()+1]...)
	}
}
