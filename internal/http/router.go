package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/middleware"
	"github.com/guttosm/campus-access/internal/service"
)

// RouterConfig holds router configuration options.
type RouterConfig struct {
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string
	SwaggerUser    string
	SwaggerPass    string
	MetricsAPIKeys []string
	SecureCookies  bool

	// IdempotencyCache enables Idempotency-Key replay on workflow mutations when set.
	IdempotencyCache *middleware.IdempotencyCache
	// LoggingService persists request and audit logs when set.
	LoggingService service.LoggingService

	AuthService            service.AuthService
	PermissionService      service.PermissionService
	RoleResolver           service.RoleResolver
	RoleApplicationService service.RoleApplicationService
}

// DefaultRouterConfig returns the default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimit:      100,
		RateWindow:     time.Minute,
		RequestTimeout: middleware.DefaultTimeout,
	}
}

// Router is the configured engine together with the limiters it owns.
type Router struct {
	*gin.Engine
	limiters []*middleware.RateLimiter
}

// Stop releases background resources of the middleware.
func (r *Router) Stop() {
	for _, l := range r.limiters {
		l.Stop()
	}
}

// NewRouter creates the Gin engine serving the access API.
func NewRouter(healthHandler *HealthHandler, cfg RouterConfig) *Router {
	r := &Router{Engine: gin.New()}

	r.configureGlobalMiddleware(&cfg)
	registerInfrastructureRoutes(r.Engine, healthHandler, &cfg)

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))

	authRoutes := NewAuthRoutes(cfg.AuthService, cfg.PermissionService, cfg.LoggingService, cfg.SecureCookies)
	authRoutes.RegisterPublicRoutes(api)

	protected := r.protectedGroup(api, &cfg)
	groups := []ProtectedRouteGroup{
		authRoutes,
		NewRoleApplicationRoutes(cfg.RoleApplicationService, cfg.PermissionService),
		NewRoleRoutes(cfg.PermissionService),
	}
	for _, g := range groups {
		g.RegisterProtectedRoutes(protected, &cfg)
	}

	return r
}

// configureGlobalMiddleware sets up middleware applied to all routes.
func (r *Router) configureGlobalMiddleware(cfg *RouterConfig) {
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSOrigins),
		metrics.PrometheusMiddleware(),
		middleware.Compression(),
		middleware.RequestLogger(cfg.LoggingService),
		middleware.ErrorHandler(),
	)

	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		r.limiters = append(r.limiters, limiter)
		r.Use(limiter.RateLimit())
	}
}

// protectedGroup returns the group for authenticated routes: a valid access token, a
// per-user rate limit and the caller's current role.
func (r *Router) protectedGroup(api *gin.RouterGroup, cfg *RouterConfig) *gin.RouterGroup {
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(cfg.AuthService))

	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		r.limiters = append(r.limiters, limiter)
		protected.Use(limiter.UserRateLimit())
	}
	protected.Use(middleware.ResolveRole(cfg.RoleResolver))
	return protected
}

// registerInfrastructureRoutes registers health, metrics, and documentation routes.
func registerInfrastructureRoutes(router *gin.Engine, healthHandler *HealthHandler, cfg *RouterConfig) {
	if healthHandler != nil {
		healthHandler.Register(router)
	}
	router.GET("/metrics", middleware.APIKeyAuth(cfg.MetricsAPIKeys), gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerUser != "" && cfg.SwaggerPass != "" {
		authorized := router.Group("/swagger", gin.BasicAuth(gin.Accounts{
			cfg.SwaggerUser: cfg.SwaggerPass,
		}))
		authorized.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	} else {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
