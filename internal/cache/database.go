package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/philsca/registrar/internal/models"
)

var errNilDatabaseStore = errors.New("cache: database store not initialised")

// DatabaseStore implements Store on the cache_entries table.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore returns nil when db is nil.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// WithClock returns a copy of the store that reads time from now.
func (s *DatabaseStore) WithClock(now func() time.Time) *DatabaseStore {
	if s == nil || now == nil {
		return s
	}
	clone := *s
	clone.now = now
	return &clone
}

func (s *DatabaseStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// lockEntry loads key with a row lock where the dialect supports one.
func lockEntry(tx *gorm.DB, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &entry, err
}

// IncrementWithTTL increments the counter at key. An expired counter restarts at 1
// with a fresh window; a live one keeps its original deadline.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errNilDatabaseStore
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var (
		count    int64
		deadline time.Time
	)

	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		entry, err := lockEntry(tx, key)
		if err != nil {
			return err
		}

		if entry == nil || entry.Expired(now) {
			count = 1
			deadline = now.Add(window)
			fresh := models.CacheEntry{Key: key, Value: []byte("1"), ExpiresAt: deadline}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
			}).Create(&fresh).Error
		}

		current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
		count = current + 1
		deadline = entry.ExpiresAt
		if deadline.IsZero() {
			deadline = now.Add(window)
		}
		return tx.Model(&models.CacheEntry{}).Where("key = ?", key).Updates(map[string]any{
			"value":      []byte(strconv.FormatInt(count, 10)),
			"expires_at": deadline,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, deadline.Sub(now), nil
}

// Set upserts value at key.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errNilDatabaseStore
	}

	entry := models.CacheEntry{Key: key, Value: value, ExpiresAt: s.deadline(ttl)}
	return s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// SetIfAbsent claims key inside a transaction so concurrent callers see one winner.
func (s *DatabaseStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if s == nil {
		return false, errNilDatabaseStore
	}

	now := s.now()
	stored := false
	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		entry, err := lockEntry(tx, key)
		if err != nil {
			return err
		}
		if entry != nil && !entry.Expired(now) {
			return nil
		}

		claim := models.CacheEntry{Key: key, Value: value, ExpiresAt: s.deadline(ttl)}
		if entry != nil {
			err = tx.Model(&models.CacheEntry{}).Where("key = ?", key).Updates(map[string]any{
				"value":      claim.Value,
				"expires_at": claim.ExpiresAt,
			}).Error
		} else {
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
			err = result.Error
			if err == nil && result.RowsAffected == 0 {
				return nil
			}
		}
		if err != nil {
			return err
		}
		stored = true
		return nil
	})
	return stored, err
}

// Get returns the value at key. Expired entries are removed and reported missing.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errNilDatabaseStore
	}
	ctx = ensureContext(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if entry.Expired(s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errNilDatabaseStore
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ensureContext(ctx)).Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// PurgeExpired removes entries whose deadline has passed and reports how many went.
func (s *DatabaseStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errNilDatabaseStore
	}

	result := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, now).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
