package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/app"
	iauth "github.com/philsca/registrar/internal/auth"
	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/handlers"
	"github.com/philsca/registrar/internal/middleware"
	"github.com/philsca/registrar/internal/monitoring"
	"github.com/philsca/registrar/internal/push"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/internal/storage"
	"github.com/philsca/registrar/pkg/mail"
)

// Dependencies carries the long-lived collaborators the router wires into services.
// Feed, Hub, Push, Mailer, RateStore and HealthChecks are optional.
type Dependencies struct {
	DB        *gorm.DB
	Config    *app.Config
	Sessions  *iauth.SessionManager
	Tickets   *iauth.TicketService
	Blobs     storage.BlobStore
	Feed      *realtime.Feed
	Hub       *realtime.Hub
	Push      push.Sender
	Mailer    mail.Mailer
	RateStore middleware.RateStore

	// HealthChecks are readiness probes added after the database, storage and
	// realtime checks.
	HealthChecks []monitoring.Check
}

// csrfExempt lists the prefixes used before a CSRF cookie can exist, plus the
// websocket upgrade which authenticates with a ticket instead.
var csrfExempt = []string{"/api/session", "/api/password", "/api/setup", "/ws"}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager must be provided")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("blob store must be provided")
	}
	cfg := deps.Config

	var feed realtime.Publisher
	if deps.Feed != nil {
		feed = deps.Feed
	}

	svc, err := buildServices(deps, feed)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.IsProduction()))
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF(middleware.CSRFOptions{
			Exempt: csrfExempt,
			Secure: cfg.Server.IsProduction(),
		}))
	}
	r.Use(middleware.RateLimit(deps.RateStore, middleware.RateLimitConfig{
		Requests: cfg.Server.RateLimit.Requests,
		Window:   cfg.Server.RateLimit.Window,
	}))

	registerOpsRoutes(r, cfg, healthManager(deps))

	registerSessionRoutes(r, sessionRouteDeps{
		Auth:     handlers.NewAuthHandler(svc.accounts, deps.Sessions),
		Setup:    handlers.NewSetupHandler(svc.accounts),
		Password: handlers.NewPasswordHandler(svc.resets),
	})

	api := r.Group("/api")
	api.Use(middleware.RequireSession(deps.Sessions))

	api.GET("/dashboard", handlers.NewDashboardHandler(svc.dashboard).Summary)
	registerRequestRoutes(api, handlers.NewRequestHandler(svc.requests, svc.lifecycle))
	registerMessageRoutes(api, handlers.NewMessageHandler(svc.messages))
	registerNewsRoutes(api, handlers.NewNewsHandler(svc.news))
	registerSettingsRoutes(api, handlers.NewSettingsHandler(svc.accounts))
	registerRealtimeRoutes(r, api, handlers.NewRealtimeHandler(deps.Hub, deps.Tickets, realtime.Streams()...))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func healthManager(deps Dependencies) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager(0)
	manager.RegisterReadiness(monitoring.Database(deps.DB))
	if root := deps.Config.Storage.StoreConfig().Root; root != "" {
		manager.RegisterReadiness(monitoring.Storage(root))
	}
	if deps.Hub != nil {
		manager.RegisterReadiness(monitoring.Realtime(deps.Hub, realtime.StreamDashboard))
	}
	for _, check := range deps.HealthChecks {
		manager.RegisterReadiness(check)
	}
	return manager
}

type serviceSet struct {
	accounts  *services.AccountService
	resets    *services.PasswordResetService
	dashboard *services.DashboardService
	requests  *services.RequestService
	lifecycle *services.RequestLifecycleService
	messages  *services.MessageService
	news      *services.NewsService
}

func buildServices(deps Dependencies, feed realtime.Publisher) (*serviceSet, error) {
	cfg := deps.Config

	provider, err := providers.NewLocalProvider(deps.DB, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, err
	}

	accounts, err := services.NewAccountService(deps.DB, provider, feed)
	if err != nil {
		return nil, err
	}

	resets, err := services.NewPasswordResetService(deps.DB, deps.Mailer, provider,
		services.WithResetBaseURL(cfg.ResetLinkBase()),
		services.WithResetExpiry(cfg.Auth.ResetTTL()),
	)
	if err != nil {
		return nil, err
	}

	dashboard, err := services.NewDashboardService(deps.DB)
	if err != nil {
		return nil, err
	}

	var sender push.Sender
	if cfg.Push.Enabled {
		sender = deps.Push
	}
	notifier, err := services.NewNotificationService(deps.DB, sender, feed)
	if err != nil {
		return nil, err
	}

	requests, err := services.NewRequestService(deps.DB, feed)
	if err != nil {
		return nil, err
	}

	lifecycle, err := services.NewRequestLifecycleService(deps.DB, notifier, feed)
	if err != nil {
		return nil, err
	}

	messages, err := services.NewMessageService(deps.DB, feed)
	if err != nil {
		return nil, err
	}

	news, err := services.NewNewsService(deps.DB, deps.Blobs, notifier, feed)
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		accounts:  accounts,
		resets:    resets,
		dashboard: dashboard,
		requests:  requests,
		lifecycle: lifecycle,
		messages:  messages,
		news:      news,
	}, nil
}
