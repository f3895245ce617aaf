// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/guttosm/campus-access/internal/apperror"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Workflow WorkflowConfig
	Cache    CacheConfig
	Jobs     JobsConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	RateLimit      int           `env:"RATE_LIMIT" envDefault:"100"`
	RateWindow     time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`
	SwaggerUser    string        `env:"SWAGGER_USER"`
	SwaggerPass    string        `env:"SWAGGER_PASS"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"true"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	// MetricsAPIKeys guard /metrics; empty leaves it open.
	MetricsAPIKeys []string `env:"METRICS_API_KEYS" envSeparator:","`
}

// AuthConfig holds token and session configuration.
type AuthConfig struct {
	JWTSecretKey     string        `env:"JWT_SECRET_KEY" envDefault:"your-secret-key-change-in-production"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET_KEY" envDefault:"your-refresh-secret-key-change-in-production"`
	AccessTokenTTL   time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"JWT_REFRESH_TOKEN_TTL" envDefault:"168h"`
	MaxRefreshTokens int           `env:"MAX_REFRESH_TOKENS" envDefault:"5"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`
	// Bootstrap admin, created at startup when both are set and the email is unknown.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// DatabaseConfig holds MongoDB configuration.
type DatabaseConfig struct {
	URI          string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string        `env:"MONGODB_DATABASE" envDefault:"campus_access"`
	LogsTTL      time.Duration `env:"MONGODB_LOGS_TTL" envDefault:"720h"`
	// CircuitBreaker configuration
	CircuitBreakerFailureThreshold int           `env:"CIRCUIT_BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	CircuitBreakerSuccessThreshold int           `env:"CIRCUIT_BREAKER_SUCCESS_THRESHOLD" envDefault:"2"`
	CircuitBreakerTimeout          time.Duration `env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`
}

// RedisConfig holds the optional Redis connection. An empty URL disables Redis.
type RedisConfig struct {
	URL           string `env:"REDIS_URL"`
	EventsChannel string `env:"REDIS_EVENTS_CHANNEL" envDefault:"role-applications"`
}

// WorkflowConfig holds role application rules.
type WorkflowConfig struct {
	ReapplyCooldown time.Duration `env:"REAPPLY_COOLDOWN" envDefault:"720h"`
	ReasonMinLength int           `env:"REASON_MIN_LENGTH" envDefault:"50"`
	ReasonMaxLength int           `env:"REASON_MAX_LENGTH" envDefault:"1000"`
}

// CacheConfig holds the effective role cache configuration.
type CacheConfig struct {
	Size int           `env:"CACHE_SIZE" envDefault:"1000"`
	TTL  time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// JobsConfig holds background job schedules.
type JobsConfig struct {
	Enabled        bool   `env:"JOBS_ENABLED" envDefault:"true"`
	TokenSweepCron string `env:"TOKEN_SWEEP_CRON" envDefault:"@every 1h"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// defaultCORSOrigins are always allowed for local development.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Load creates a Config from environment variables. A .env file in the working
// directory is loaded first when present.
func Load() (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", apperror.ErrConfiguration, err)
	}

	cfg.Server.CORSOrigins = mergeCORSOrigins(cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecretKey == "" || c.Auth.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("jwt secrets must be set"))
	}
	if c.Auth.JWTSecretKey == c.Auth.JWTRefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if c.Auth.MaxRefreshTokens < 1 {
		errs = append(errs, errors.New("max refresh tokens must be at least 1"))
	}
	if c.Workflow.ReasonMinLength < 0 || c.Workflow.ReasonMaxLength < c.Workflow.ReasonMinLength {
		errs = append(errs, errors.New("reason length bounds are inconsistent"))
	}
	if c.Workflow.ReapplyCooldown < 0 {
		errs = append(errs, errors.New("reapply cooldown must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", apperror.ErrConfiguration, errors.Join(errs...))
}

func mergeCORSOrigins(extra []string) []string {
	result := make([]string, 0, len(extra)+len(defaultCORSOrigins))
	result = append(result, defaultCORSOrigins...)
	for _, p := range extra {
		if origin := strings.TrimSpace(p); origin != "" {
			result = append(result, origin)
		}
	}
	return result
}
