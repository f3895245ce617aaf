// Package metrics provides Prometheus metrics for the access service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// LoginsTotal counts login attempts by result.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// TokenRefreshesTotal counts refresh token rotations by result.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Total number of refresh token rotations",
		},
		[]string{"result"},
	)

	// AuthorizationDecisionsTotal counts permission checks.
	AuthorizationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of permission checks",
		},
		[]string{"resource", "action", "result"},
	)

	// RoleApplicationTransitionsTotal counts role application status changes.
	RoleApplicationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_application_transitions_total",
			Help: "Total number of role application status transitions",
		},
		[]string{"from", "to"},
	)

	// RoleCacheOperationsTotal counts effective role cache lookups.
	RoleCacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_cache_operations_total",
			Help: "Total number of effective role cache lookups",
		},
		[]string{"result"},
	)

	// SweepRunsTotal counts background sweep runs.
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total number of background sweep runs",
		},
		[]string{"job", "result"},
	)

	// SweepRemovedTotal counts records removed by background sweeps.
	SweepRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_removed_total",
			Help: "Total number of records removed by background sweeps",
		},
		[]string{"job"},
	)

	// CircuitBreakerState reports 0 closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// RecordLogin records a login attempt.
func RecordLogin(ok bool) {
	LoginsTotal.WithLabelValues(resultLabel(ok, ResultSuccess, ResultFailure)).Inc()
}

// RecordTokenRefresh records a refresh token rotation.
func RecordTokenRefresh(ok bool) {
	TokenRefreshesTotal.WithLabelValues(resultLabel(ok, ResultSuccess, ResultFailure)).Inc()
}

// RecordAuthorization records a permission check.
func RecordAuthorization(resource, action string, allowed bool) {
	AuthorizationDecisionsTotal.WithLabelValues(resource, action, resultLabel(allowed, ResultAllowed, ResultDenied)).Inc()
}

// RecordTransition records a role application status change.
func RecordTransition(from, to string) {
	RoleApplicationTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRoleCache records an effective role cache lookup.
func RecordRoleCache(hit bool) {
	RoleCacheOperationsTotal.WithLabelValues(resultLabel(hit, ResultHit, ResultMiss)).Inc()
}

// RecordSweep records a background sweep run and how many records it removed.
func RecordSweep(job string, removed int64, err error) {
	SweepRunsTotal.WithLabelValues(job, resultLabel(err == nil, ResultSuccess, ResultFailure)).Inc()
	if removed > 0 {
		SweepRemovedTotal.WithLabelValues(job).Add(float64(removed))
	}
}

// SetCircuitBreakerState publishes the state of a named circuit breaker.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
