package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/relinkhq/relink/internal/api"
	"github.com/relinkhq/relink/internal/config"
	"github.com/relinkhq/relink/internal/events"
	"github.com/relinkhq/relink/internal/middleware"
	"github.com/relinkhq/relink/internal/observability"
	"github.com/relinkhq/relink/internal/repository"
	"github.com/relinkhq/relink/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// redisPinger adapts *redis.Client to api.CacheInterface.
type redisPinger struct{ client *redis.Client }

func (r *redisPinger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Deps bundles the external resources the router is wired from.
// Publisher and Metrics may be nil.
type Deps struct {
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.ClickPublisher
	Logger    *slog.Logger
	Metrics   *observability.AppMetrics
}

// NewRouter initializes all dependencies and returns a configured Gin engine.
// This is the composition root: repositories, service, and handlers receive
// their store handles here and never reach for process-wide state, so tests
// can stand up multiple routers against isolated stores.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	baseRepo := repository.NewLinkRepository(deps.DB, cfg.Database.QueryTimeout)
	linkRepo := repository.NewCachedLinkRepository(baseRepo, deps.Cache, cfg.Cache.TTL, deps.Metrics)
	linkService := service.NewLinkService(linkRepo, deps.Publisher, deps.Metrics, deps.Logger, cfg.App.CodeLength, cfg.App.CodeRetries)
	handler := api.NewHandler(linkService, deps.DB, &redisPinger{client: deps.Cache}, deps.Logger)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterRoutes(r)

	return r
}

// NewServer initializes all dependencies and returns a configured HTTP server.
func NewServer(cfg *config.Config, deps Deps) *http.Server {
	router := NewRouter(cfg, deps)

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
