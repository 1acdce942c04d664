package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/internal/storage"
	"github.com/philsca/registrar/pkg/crypto"
	apperrors "github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/metrics"
)

const (
	// NewsDateLayout renders the news creation date.
	NewsDateLayout = "Jan 02, 2006"

	newsIDLength         = 11
	newsNotificationName = "Announcement/News"
	newsFanoutBatchSize  = 100
)

// NewsImage is an uploaded news/update image.
type NewsImage struct {
	Name   string
	Reader io.Reader
}

// PublishNewsInput is the news/update form.
type PublishNewsInput struct {
	Title       string
	Description string
	Image       *NewsImage
}

// UpdateNewsInput edits a news item. A nil Image keeps the current one.
type UpdateNewsInput struct {
	Title       string
	Description string
	Image       *NewsImage
}

// NewsItem is a news record as rendered in the news table.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	NewsImage   string    `json:"newsImage"`
	ImageName   string    `json:"imageName"`
	CreatedAt   string    `json:"createdAt"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewsService publishes announcements and fans them out to every student.
type NewsService struct {
	db       *gorm.DB
	blobs    storage.BlobStore
	notifier *NotificationService
	feed     realtime.Publisher
	now      func() time.Time
}

// NewsOption customises the NewsService.
type NewsOption func(*NewsService)

// WithNewsClock injects a custom time source.
func WithNewsClock(clock func() time.Time) NewsOption {
	return func(s *NewsService) {
		s.now = clockOrNow(clock)
	}
}

// NewNewsService constructs a NewsService.
func NewNewsService(db *gorm.DB, blobs storage.BlobStore, notifier *NotificationService, feed realtime.Publisher, opts ...NewsOption) (*NewsService, error) {
	if db == nil {
		return nil, errors.New("news service: db is required")
	}
	if blobs == nil {
		return nil, errors.New("news service: blob store is required")
	}
	if notifier == nil {
		return nil, errors.New("news service: notifier is required")
	}
	svc := &NewsService{db: db, blobs: blobs, notifier: notifier, feed: publisherOrNop(feed), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Publish validates the form, stores the image, writes the news record and then
// notifies every student one at a time. A failure during the fan-out returns an
// error; students notified before it stay notified.
func (s *NewsService) Publish(ctx context.Context, input PublishNewsInput) (*NewsItem, error) {
	ctx = ensureContext(ctx)

	title := trimmed(input.Title)
	description := trimmed(input.Description)
	fields := map[string]string{}
	if input.Image == nil || input.Image.Reader == nil || trimmed(input.Image.Name) == "" {
		fields["image"] = "News/Update is required."
	}
	if title == "" {
		fields["title"] = "Title is required."
	}
	if description == "" {
		fields["description"] = "Description is required."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	id := crypto.ShortID(newsIDLength)
	object, err := s.storeImage(ctx, id, input.Image)
	if err != nil {
		return nil, err
	}

	now := s.now()
	news := models.News{
		ID:          id,
		Title:       title,
		Description: description,
		NewsImage:   object.URL,
		ImageName:   storage.SanitizeFileName(input.Image.Name),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&news).Error; err != nil {
		return nil, writeFailed("news service: create news", err)
	}

	item := toNewsItem(news)
	s.feed.Publish(realtime.Event{Path: realtime.NewsPath(news.ID), Op: realtime.OpCreate, Data: item})

	if err := s.fanOut(ctx, news); err != nil {
		return &item, err
	}
	return &item, nil
}

// Update changes title and description. A replacement image is uploaded, resets
// the creation date and removes the previous image.
func (s *NewsService) Update(ctx context.Context, id string, input UpdateNewsInput) (*NewsItem, error) {
	ctx = ensureContext(ctx)

	news, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	title := trimmed(input.Title)
	description := trimmed(input.Description)
	fields := map[string]string{}
	if title == "" {
		fields["title"] = "Title is required."
	}
	if description == "" {
		fields["description"] = "Description is required."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	now := s.now()
	updates := map[string]any{
		"title":       title,
		"description": description,
		"updated_at":  now,
	}
	previousImage, newImage := news.ImageName, ""
	if input.Image != nil && input.Image.Reader != nil && trimmed(input.Image.Name) != "" {
		object, err := s.storeImage(ctx, news.ID, input.Image)
		if err != nil {
			return nil, err
		}
		newImage = storage.SanitizeFileName(input.Image.Name)
		updates["news_image"] = object.URL
		updates["image_name"] = newImage
		updates["created_at"] = now
	}

	if err := s.db.WithContext(ctx).Model(&models.News{}).Where("id = ?", news.ID).UpdateColumns(updates).Error; err != nil {
		return nil, writeFailed("news service: update news", err)
	}
	if newImage != "" && previousImage != "" && previousImage != newImage {
		s.removeImage(ctx, news.ID, previousImage)
	}

	news, err = s.load(ctx, news.ID)
	if err != nil {
		return nil, err
	}
	item := toNewsItem(*news)
	s.feed.Publish(realtime.Event{Path: realtime.NewsPath(news.ID), Op: realtime.OpUpdate, Data: item})
	return &item, nil
}

// Delete removes the news record and its image blob.
func (s *NewsService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	news, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.News{}, "id = ?", news.ID).Error; err != nil {
		return writeFailed("news service: delete news", err)
	}
	s.feed.Publish(realtime.Event{Path: realtime.NewsPath(news.ID), Op: realtime.OpDelete})

	if news.ImageName != "" {
		s.removeImage(ctx, news.ID, news.ImageName)
	}
	return nil
}

// List returns every news item, newest first.
func (s *NewsService) List(ctx context.Context) ([]NewsItem, error) {
	ctx = ensureContext(ctx)

	var rows []models.News
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("news service: list news: %w", err)
	}
	items := make([]NewsItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toNewsItem(row))
	}
	return items, nil
}

// Get returns a single news item.
func (s *NewsService) Get(ctx context.Context, id string) (*NewsItem, error) {
	news, err := s.load(ensureContext(ctx), id)
	if err != nil {
		return nil, err
	}
	item := toNewsItem(*news)
	return &item, nil
}

func (s *NewsService) load(ctx context.Context, id string) (*models.News, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNewsNotFound
	}
	var news models.News
	err := s.db.WithContext(ctx).Take(&news, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNewsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("news service: load news: %w", err)
	}
	return &news, nil
}

// removeImage deletes a news image blob. Failures are logged only.
func (s *NewsService) removeImage(ctx context.Context, newsID, name string) {
	if err := s.blobs.Delete(ctx, storage.NewsImageKey(newsID, name)); err != nil {
		logger.WithModule("news").Warn("failed to remove news image",
			zap.String("news_id", newsID),
			zap.String("image", name),
			zap.Error(err))
	}
}

func (s *NewsService) storeImage(ctx context.Context, newsID string, image *NewsImage) (storage.Object, error) {
	object, err := s.blobs.Put(ctx, storage.NewsImageKey(newsID, image.Name), image.Reader)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return storage.Object{}, apperrors.NewValidation(map[string]string{"image": "News/Update must be a PNG or JPEG image."})
	case errors.Is(err, storage.ErrTooLarge):
		return storage.Object{}, apperrors.NewValidation(map[string]string{"image": "News/Update image is too large."})
	case err != nil:
		return storage.Object{}, writeFailed("news service: upload image", err)
	}
	return object, nil
}

// fanOut appends one notification per student, in batches read from the user table.
func (s *NewsService) fanOut(ctx context.Context, news models.News) error {
	var users []models.User
	var notifyErr error

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Select("id", "expo_push_token").
		FindInBatches(&users, newsFanoutBatchSize, func(tx *gorm.DB, _ int) error {
			for _, user := range users {
				_, err := s.notifier.Notify(ctx, NotifyInput{
					UserID:    user.ID,
					PushToken: user.ExpoPushToken,
					Title:     newsNotificationName,
					Message:   news.Description,
					Route:     models.RouteDashboard,
					Origin:    OriginNews,
					Metadata:  map[string]any{"newsId": news.ID},
				})
				if err != nil {
					metrics.NewsFanout.WithLabelValues("error").Inc()
					notifyErr = err
					return err
				}
				metrics.NewsFanout.WithLabelValues("ok").Inc()
			}
			return nil
		})
	if notifyErr != nil {
		return notifyErr
	}
	if result.Error != nil {
		return fmt.Errorf("news service: load users: %w", result.Error)
	}
	return nil
}

func toNewsItem(news models.News) NewsItem {
	return NewsItem{
		ID:          news.ID,
		Title:       news.Title,
		Description: news.Description,
		NewsImage:   news.NewsImage,
		ImageName:   news.ImageName,
		CreatedAt:   news.CreatedAt.Format(NewsDateLayout),
		PublishedAt: news.CreatedAt,
	}
}
