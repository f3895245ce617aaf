//go:build !integration

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/circuitbreaker"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/mocks"
	"github.com/guttosm/campus-access/internal/notify"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/service"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			RateLimit:      100,
			RateWindow:     time.Minute,
			RequestTimeout: 30 * time.Second,
			CORSOrigins:    []string{"http://localhost:3000"},
			CookieSecure:   true,
			IdempotencyTTL: time.Hour,
			MetricsAPIKeys: []string{"scrape"},
		},
		Auth: config.AuthConfig{
			JWTSecretKey:     "access-secret",
			JWTRefreshSecret: "refresh-secret",
			AccessTokenTTL:   15 * time.Minute,
			RefreshTokenTTL:  7 * 24 * time.Hour,
			MaxRefreshTokens: 5,
			BcryptCost:       bcrypt.MinCost,
		},
		Redis:    config.RedisConfig{EventsChannel: "role-applications"},
		Workflow: config.WorkflowConfig{ReapplyCooldown: 720 * time.Hour, ReasonMinLength: 50, ReasonMaxLength: 1000},
		Cache:    config.CacheConfig{Size: 100, TTL: time.Minute},
		Jobs:     config.JobsConfig{Enabled: true, TokenSweepCron: "@every 1h"},
	}
}

func mockDatabase() *DatabaseComponents {
	return &DatabaseComponents{
		UserRepo:        new(mocks.MockUserRepositoryInterface),
		TokenRepo:       new(mocks.MockTokenRepositoryInterface),
		ApplicationRepo: new(mocks.MockRoleApplicationRepositoryInterface),
		LoggingService:  service.NewLoggingService(new(mocks.MockLogsRepositoryInterface)),
	}
}

func TestInitializeServices(t *testing.T) {
	svc, err := InitializeServices(testConfig(), mockDatabase(), nil)

	require.NoError(t, err)
	assert.NotNil(t, svc.Hierarchy)
	assert.NotNil(t, svc.RoleResolver)
	assert.NotNil(t, svc.Permissions)
	assert.NotNil(t, svc.Auth)
	assert.NotNil(t, svc.Applications)
	assert.NotNil(t, svc.Events)
	assert.Equal(t, 720*time.Hour, svc.Applications.Cooldown())
}

func TestRouterConfig(t *testing.T) {
	tests := []struct {
		name            string
		idempotencyTTL  time.Duration
		wantIdempotency bool
	}{
		{name: "idempotency cache enabled", idempotencyTTL: time.Hour, wantIdempotency: true},
		{name: "idempotency cache disabled", idempotencyTTL: 0, wantIdempotency: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.IdempotencyTTL = tt.idempotencyTTL
			db := mockDatabase()
			svc, err := InitializeServices(cfg, db, nil)
			require.NoError(t, err)

			routerCfg := routerConfig(cfg, db, svc)

			assert.Equal(t, 100, routerCfg.RateLimit)
			assert.Equal(t, time.Minute, routerCfg.RateWindow)
			assert.Equal(t, 30*time.Second, routerCfg.RequestTimeout)
			assert.Equal(t, []string{"scrape"}, routerCfg.MetricsAPIKeys)
			assert.True(t, routerCfg.SecureCookies)
			assert.Same(t, svc.Applications, routerCfg.RoleApplicationService)
			assert.Equal(t, tt.wantIdempotency, routerCfg.IdempotencyCache != nil)
		})
	}
}

func TestInitializeRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	t.Run("disabled without url", func(t *testing.T) {
		assert.Nil(t, InitializeRedis(context.Background(), config.RedisConfig{}))
	})

	t.Run("invalid url", func(t *testing.T) {
		assert.Nil(t, InitializeRedis(context.Background(), config.RedisConfig{URL: "not a url"}))
	})

	t.Run("connects", func(t *testing.T) {
		client := InitializeRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
		require.NotNil(t, client)
		t.Cleanup(func() { _ = client.Close() })
		assert.NoError(t, client.Ping(context.Background()).Err())
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		assert.Nil(t, InitializeRedis(ctx, config.RedisConfig{URL: "redis://127.0.0.1:1"}))
	})
}

type auditWriterFunc func(ctx context.Context, entry *model.LogEntry) error

func (f auditWriterFunc) CreateLog(ctx context.Context, entry *model.LogEntry) error {
	return f(ctx, entry)
}

func TestNewEventDispatcher_PublishesToRedisAndAudit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := InitializeRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), "events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	audited := make(chan *model.LogEntry, 1)
	audit := auditWriterFunc(func(_ context.Context, entry *model.LogEntry) error {
		audited <- entry
		return nil
	})

	events := newEventDispatcher(config.RedisConfig{EventsChannel: "events"}, audit, client)
	app := &model.RoleApplication{
		ID:            primitive.NewObjectID(),
		ApplicantID:   primitive.NewObjectID(),
		CurrentRole:   rbac.RoleUser,
		RequestedRole: rbac.RoleMentor,
		Status:        model.StatusPending,
	}
	events.Publish(context.Background(), notify.NewEvent(app, app.ApplicantID, "", time.Now()))

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, app.ID.Hex())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published to redis")
	}

	select {
	case entry := <-audited:
		assert.Equal(t, app.ApplicantID.Hex(), entry.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not audited")
	}
}

func TestEnsureAdmin(t *testing.T) {
	lookupErr := errors.New("connection reset")

	tests := []struct {
		name        string
		email       string
		password    string
		setup       func(*mocks.MockUserRepositoryInterface)
		wantErr     error
		wantCreated bool
	}{
		{
			name:  "not configured",
			email: "",
			setup: func(*mocks.MockUserRepositoryInterface) {},
		},
		{
			name:     "existing account",
			email:    "admin@campus.test",
			password: "correct horse",
			setup: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "admin@campus.test").
					Return(&model.User{Email: "admin@campus.test", Role: rbac.RoleAdmin}, nil)
			},
		},
		{
			name:     "creates admin",
			email:    "admin@campus.test",
			password: "correct horse",
			setup: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "admin@campus.test").Return(nil, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			wantCreated: true,
		},
		{
			name:     "lookup fails",
			email:    "admin@campus.test",
			password: "correct horse",
			setup: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "admin@campus.test").Return(nil, lookupErr)
			},
			wantErr: lookupErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mocks.MockUserRepositoryInterface)
			tt.setup(users)
			cfg := testConfig().Auth
			cfg.AdminEmail = tt.email
			cfg.AdminPassword = tt.password

			err := ensureAdmin(context.Background(), users, cfg)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			users.AssertExpectations(t)

			if !tt.wantCreated {
				users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			created := users.Calls[len(users.Calls)-1].Arguments.Get(1).(*model.User)
			assert.Equal(t, rbac.RoleAdmin, created.Role)
			assert.True(t, created.Active)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte(tt.password)))
		})
	}
}

func TestInitializeJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	client := InitializeRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name          string
		cfg           config.JobsConfig
		wantScheduler bool
		wantErr       bool
	}{
		{name: "disabled", cfg: config.JobsConfig{Enabled: false, TokenSweepCron: "@every 1h"}},
		{name: "enabled", cfg: config.JobsConfig{Enabled: true, TokenSweepCron: "@every 1h"}, wantScheduler: true},
		{name: "invalid schedule", cfg: config.JobsConfig{Enabled: true, TokenSweepCron: "every hour"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler, err := InitializeJobs(tt.cfg, mockDatabase(), client)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScheduler, scheduler != nil)
		})
	}
}

func TestOnBreakerStateChange(t *testing.T) {
	onBreakerStateChange("test-breaker", circuitbreaker.StateClosed, circuitbreaker.StateOpen)
	assert.Equal(t, float64(circuitbreaker.StateOpen), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-breaker")))

	onBreakerStateChange("test-breaker", circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen)
	assert.Equal(t, float64(circuitbreaker.StateHalfOpen), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-breaker")))
}

func TestAppClose_NilComponents(t *testing.T) {
	a := &App{}
	assert.NoError(t, a.Close(context.Background()))
}
