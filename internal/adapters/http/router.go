package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/handlers"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/middleware"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds the read endpoints when the config names no
// timeout.
const DefaultRequestTimeout = 30 * time.Second

// DeliveryRunTimeout bounds manual delivery runs, which wait on the
// generation API and a fan-out of sends rather than a single blob read.
const DeliveryRunTimeout = 5 * time.Minute

// AdminRole is the gateway role required for operator endpoints when the
// auth configuration does not name one.
const AdminRole = "admin"

// RouterConfig carries everything SetupRouter mounts. Handlers left nil are
// skipped, so a deployment can run read-only without the subscription or
// operator surface.
type RouterConfig struct {
	Logger     *slog.Logger
	AuthConfig *config.AuthConfig
	AppConfig  *config.AppConfig

	HealthHandler       *handlers.HealthHandler
	ReflectionHandler   *handlers.ReflectionHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	AdminHandler        *handlers.AdminHandler

	// Timeout overrides DefaultRequestTimeout for the public routes.
	Timeout time.Duration
}

// SetupRouter mounts the middleware chain and the three route surfaces.
//
// The chain order matters: Recovery wraps everything so a panic in any later
// middleware still becomes a 500; the ID middlewares run before telemetry
// and logging so both see the request's IDs; CORS runs last to stamp
// headers on whatever the handlers produce.
//
// Surfaces:
//   - /-/ carries the probes, unauthenticated and without deadlines.
//   - / carries the reflection reads and the subscription lifecycle, the
//     paths the reading page and the links in outgoing emails use.
//   - /api/v1 carries the operator endpoints behind gateway claims.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.AppConfig.Name),
		telemetry.Middleware(cfg.AppConfig.Name),
		middleware.Logging(cfg.Logger),
		middleware.CORS(),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	public := engine.Group("/")
	public.Use(middleware.SimpleTimeout(timeout))

	if cfg.ReflectionHandler != nil {
		cfg.ReflectionHandler.RegisterReflectionRoutes(public)
	}

	if cfg.SubscriptionHandler != nil {
		cfg.SubscriptionHandler.RegisterSubscriptionRoutes(public)
	}

	// The longer deadline covers manual delivery runs; the operator read
	// endpoints finish well inside it anyway.
	if cfg.AdminHandler != nil {
		role := AdminRole
		if cfg.AuthConfig != nil && cfg.AuthConfig.AdminRole != "" {
			role = cfg.AuthConfig.AdminRole
		}

		admin := engine.Group("/api/v1")
		admin.Use(
			middleware.SimpleTimeout(DeliveryRunTimeout),
			middleware.RequireAuth(cfg.AuthConfig),
			middleware.RequireRole(cfg.AuthConfig, role),
		)
		cfg.AdminHandler.RegisterAdminRoutes(admin)
	}
}

// SetupMinimalRouter mounts only recovery, request IDs, and the probes, for
// deployments that need a health surface without the API.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}
