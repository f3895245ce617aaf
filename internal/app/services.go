// Package app provides service initialization.
package app

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/logger"
	"github.com/guttosm/campus-access/internal/notify"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/service"
)

// notifyTimeout bounds each notifier per application event.
const notifyTimeout = 3 * time.Second

// ServiceComponents holds service-related components.
type ServiceComponents struct {
	Hierarchy    *rbac.Hierarchy
	RoleResolver service.RoleResolver
	Permissions  service.PermissionService
	Auth         service.AuthService
	Applications service.RoleApplicationService
	Events       *notify.Dispatcher
}

// InitializeServices builds the business services on top of the repositories. rdb may be
// nil, in which case application events are not published to Redis.
func InitializeServices(cfg config.Config, db *DatabaseComponents, rdb redis.UniversalClient) (*ServiceComponents, error) {
	hierarchy, err := rbac.NewHierarchy(rbac.DefaultRoles(), rbac.DefaultTransitions())
	if err != nil {
		return nil, fmt.Errorf("build role hierarchy: %w", err)
	}

	resolver := service.NewCachedRoleResolver(db.UserRepo, cfg.Cache.Size, cfg.Cache.TTL)
	events := newEventDispatcher(cfg.Redis, db.LoggingService, rdb)

	return &ServiceComponents{
		Hierarchy:    hierarchy,
		RoleResolver: resolver,
		Permissions:  service.NewPermissionService(hierarchy, resolver),
		Auth:         service.NewAuthService(db.UserRepo, db.TokenRepo, cfg.Auth),
		Applications: service.NewRoleApplicationService(
			db.ApplicationRepo,
			db.UserRepo,
			db.Transactor,
			hierarchy,
			resolver,
			events,
			cfg.Workflow,
		),
		Events: events,
	}, nil
}

func newEventDispatcher(cfg config.RedisConfig, audit notify.AuditWriter, rdb redis.UniversalClient) *notify.Dispatcher {
	events := notify.NewDispatcher(notifyTimeout,
		notify.NewLogNotifier(logger.Component("role_applications")),
	)
	if audit != nil {
		events.Subscribe(notify.NewAuditNotifier(audit))
	}
	if rdb != nil {
		events.Subscribe(notify.NewRedisNotifier(rdb, cfg.EventsChannel))
	}
	return events
}
