package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/logger"
)

const (
	defaultTokenSpec = "@hourly"
	defaultCacheSpec = "@daily"
)

// TokenPurger removes consumed or expired password reset tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CachePurger removes expired rows from the database-backed cache.
type CachePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates background maintenance such as purging stale reset tokens and
// expired cache entries.
type Cleaner struct {
	tokens TokenPurger
	cache  CachePurger
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger

	tokenSchedule string
	cacheSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cache expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithTokenSchedule overrides the cron specification for token cleanup.
func WithTokenSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.tokenSchedule = expr
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache cleanup.
func WithCacheSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.cacheSchedule = expr
		}
	}
}

// NewCleaner constructs a Cleaner. A nil purger skips the corresponding job.
func NewCleaner(tokens TokenPurger, cache CachePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:        tokens,
		cache:         cache,
		now:           time.Now,
		tokenSchedule: defaultTokenSpec,
		cacheSchedule: defaultCacheSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers cleanup jobs and launches the scheduler when at least one job exists.
func (c *Cleaner) Start() error {
	if c.tokens == nil && c.cache == nil {
		return nil
	}

	if c.tokens != nil {
		if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
			if err := c.purgeTokens(context.Background()); err != nil {
				c.log.Warn("reset token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured cleanup routine and combines their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.tokens != nil {
		errs = multierr.Append(errs, c.purgeTokens(ctx))
	}
	if c.cache != nil {
		errs = multierr.Append(errs, c.purgeCache(ctx))
	}
	return errs
}

func (c *Cleaner) purgeTokens(ctx context.Context) error {
	removed, err := c.tokens.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Debug("purged reset tokens", zap.Int64("count", removed))
	}
	return nil
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	removed, err := c.cache.PurgeExpired(ctx, c.now())
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Debug("purged cache entries", zap.Int64("count", removed))
	}
	return nil
}
