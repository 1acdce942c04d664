package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/api"
	"github.com/philsca/registrar/internal/app"
	"github.com/philsca/registrar/internal/app/maintenance"
	"github.com/philsca/registrar/internal/auth"
	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/cache"
	"github.com/philsca/registrar/internal/database"
	"github.com/philsca/registrar/internal/middleware"
	"github.com/philsca/registrar/internal/monitoring"
	"github.com/philsca/registrar/internal/push"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/internal/storage"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Feed      *realtime.Feed
	Hub       *realtime.Hub
	Bridge    *realtime.RedisBridge
	Cleaner   *maintenance.Cleaner
	Pushes    *push.Dispatcher
	RateStore middleware.RateStore
	Router    *gin.Engine

	detachHub func()
}

// bootstrapRuntime initialises the database, optional Redis, realtime fan-out,
// background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}
	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.RedisEnabled() {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	var ticketStore cache.Store = dbStore
	if stack.Redis != nil {
		ticketStore = stack.Redis
		stack.RateStore = middleware.NewStoreRateStore(stack.Redis)
	} else {
		stack.RateStore = middleware.NewMemoryRateStore()
	}

	sessions, err := auth.NewSessionManager(cfg.SessionManagerConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session manager: %w", err)
	}

	tickets, err := auth.NewTicketService(cfg.Auth.TicketServiceConfig(ticketStore))
	if err != nil {
		return nil, fmt.Errorf("initialise ticket service: %w", err)
	}

	blobs, err := storage.NewFilesystemStore(cfg.Storage.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise blob store: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	stack.Feed = realtime.NewFeed()
	stack.Hub = realtime.NewHub(
		realtime.WithAllowedOrigins(cfg.Realtime.AllowedOrigins...),
		realtime.WithSendBuffer(cfg.Realtime.SendBuffer),
	)
	stack.detachHub = realtime.BridgeToHub(stack.Feed, stack.Hub)

	if cfg.Realtime.RedisBridge && stack.Redis != nil {
		bridge, bridgeErr := realtime.NewRedisBridge(stack.Redis.Client(), stack.Feed, cfg.Realtime.Channel)
		if bridgeErr != nil {
			return nil, fmt.Errorf("initialise redis bridge: %w", bridgeErr)
		}
		if err := bridge.Start(ctx); err != nil {
			log.Warn("redis feed bridge unavailable; events stay local", zap.Error(err))
		} else {
			stack.Bridge = bridge
		}
	}

	var healthChecks []monitoring.Check
	if cfg.Cache.RedisEnabled() {
		var pinger monitoring.Pinger
		if stack.Redis != nil {
			pinger = stack.Redis
		}
		healthChecks = append(healthChecks, monitoring.Redis(pinger))
	}

	stack.Pushes = push.NewDispatcher(push.NewClient(cfg.Push.ClientConfig(), nil), cfg.Push.DispatcherConfig())

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:        stack.DB,
		Config:    cfg,
		Sessions:  sessions,
		Tickets:   tickets,
		Blobs:     blobs,
		Feed:      stack.Feed,
		Hub:       stack.Hub,
		Push:      stack.Pushes,
		Mailer:    mailer,
		RateStore: stack.RateStore,

		HealthChecks: healthChecks,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	provider, err := providers.NewLocalProvider(stack.DB, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise local provider: %w", err)
	}
	resets, err := services.NewPasswordResetService(stack.DB, mailer, provider)
	if err != nil {
		return nil, fmt.Errorf("initialise password reset service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(resets, dbStore,
		maintenance.WithTokenSchedule(cfg.Maintenance.TokenSchedule),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.Pushes != nil {
		if err := s.Pushes.Close(ctx); err != nil {
			log.Warn("push queue not drained", zap.Error(err))
		}
		s.Pushes = nil
	}

	if s.Bridge != nil {
		s.Bridge.Stop()
		s.Bridge = nil
	}
	if s.detachHub != nil {
		s.detachHub()
		s.detachHub = nil
	}

	if store, ok := s.RateStore.(*middleware.MemoryRateStore); ok {
		store.Close()
	}
	s.RateStore = nil

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
		s.Redis = nil
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
