package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds every /api/v1 request.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig lists the handlers SetupRouter mounts. A nil handler leaves
// its routes unregistered.
type RouterConfig struct {
	Logger     *slog.Logger
	AppConfig  *config.AppConfig
	AuthConfig *config.AuthConfig

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler
	SyncHandler   *handlers.SyncHandler

	// Timeout applies to /api/v1 only; probes are never cut short.
	Timeout time.Duration
}

// NewDefaultRouterConfig returns a RouterConfig with DefaultRequestTimeout.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	authCfg *config.AuthConfig,
	healthHandler *handlers.HealthHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AppConfig:     appCfg,
		AuthConfig:    authCfg,
		HealthHandler: healthHandler,
		Timeout:       DefaultRequestTimeout,
	}
}

// SetupRouter installs the middleware chain and mounts the probe routes
// under /-/ and the quotebook API under /api/v1.
//
// Every request passes recovery, request and correlation IDs, tracing and
// metrics, then access logging. Import and sync additionally require an
// authenticated subject when auth is enabled.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.AppConfig.Name)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	api := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		api.Use(middleware.SimpleTimeout(cfg.Timeout))
	}

	guard := guardFor(cfg.AuthConfig)

	if h := cfg.QuoteHandler; h != nil {
		h.RegisterQuoteRoutes(api)
		h.RegisterImportRoute(api, guard...)
	}

	if h := cfg.SyncHandler; h != nil {
		h.RegisterMessageRoutes(api)
		h.RegisterSyncRoute(api, guard...)
	}
}

func guardFor(auth *config.AuthConfig) []gin.HandlerFunc {
	if auth == nil || !auth.Enabled {
		return nil
	}

	return []gin.HandlerFunc{middleware.RequireAuth(auth)}
}
