// Package app provides router configuration.
package app

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/http"
	"github.com/guttosm/campus-access/internal/middleware"
)

// InitializeRouter builds the health handler and the HTTP router. rdb may be nil.
func InitializeRouter(cfg config.Config, db *DatabaseComponents, svc *ServiceComponents, rdb redis.UniversalClient) *http.Router {
	healthHandler := http.NewHealthHandler()
	healthHandler.RegisterChecker("mongodb", db.DB)
	healthHandler.RegisterCircuitBreaker("mongodb_tokens", db.TokensCircuitBreaker)
	healthHandler.RegisterCircuitBreaker("mongodb_logs", db.LogsCircuitBreaker)
	if rdb != nil {
		healthHandler.RegisterChecker("redis", http.HealthCheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}

	return http.NewRouter(healthHandler, routerConfig(cfg, db, svc))
}

func routerConfig(cfg config.Config, db *DatabaseComponents, svc *ServiceComponents) http.RouterConfig {
	routerCfg := http.RouterConfig{
		RateLimit:              cfg.Server.RateLimit,
		RateWindow:             cfg.Server.RateWindow,
		RequestTimeout:         cfg.Server.RequestTimeout,
		CORSOrigins:            cfg.Server.CORSOrigins,
		SwaggerUser:            cfg.Server.SwaggerUser,
		SwaggerPass:            cfg.Server.SwaggerPass,
		MetricsAPIKeys:         cfg.Server.MetricsAPIKeys,
		SecureCookies:          cfg.Server.CookieSecure,
		LoggingService:         db.LoggingService,
		AuthService:            svc.Auth,
		PermissionService:      svc.Permissions,
		RoleResolver:           svc.RoleResolver,
		RoleApplicationService: svc.Applications,
	}
	if cfg.Server.IdempotencyTTL > 0 {
		routerCfg.IdempotencyCache = middleware.NewIdempotencyCache(middleware.DefaultIdempotencyEntries, cfg.Server.IdempotencyTTL)
	}
	return routerCfg
}
