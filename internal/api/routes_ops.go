package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/philsca/registrar/internal/app"
	"github.com/philsca/registrar/internal/handlers"
	"github.com/philsca/registrar/internal/monitoring"
)

func registerOpsRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) {
	if cfg.Monitoring.Health.Enabled {
		health := handlers.NewHealthHandler(manager)
		r.GET("/health", health.Liveness)
		r.GET("/health/ready", health.Readiness)
		r.GET("/api/health", health.Readiness)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	store := cfg.Storage.StoreConfig()
	if store.Root != "" {
		public := "/" + strings.Trim(store.PublicPath, "/")
		if public == "/" {
			public = "/media"
		}
		r.Static(public, store.Root)
	}
}
