package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/logger"
	"github.com/guttosm/campus-access/internal/service"
)

// RequestLogger returns a middleware that logs every request to the console and, when
// loggingService is set, persists it to the logs collection.
func RequestLogger(loggingService service.LoggingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		level := logLevel(statusCode)

		entry := newRequestEntry(c, level, "HTTP request")
		entry.StatusCode = statusCode
		entry.Duration = latency.Milliseconds()

		log := logger.Logger().With().
			Str("request_id", entry.RequestID).
			Str("method", entry.Method).
			Str("path", entry.Path).
			Int("status_code", statusCode).
			Int64("duration_ms", entry.Duration).
			Str("ip", entry.IP).
			Str("user_id", entry.UserID).
			Logger()

		switch level {
		case "error":
			log.Error().Msg("HTTP request")
		case "warn":
			log.Warn().Msg("HTTP request")
		default:
			log.Info().Msg("HTTP request")
		}

		submitEntry(loggingService, entry)
	}
}

func logLevel(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "error"
	case statusCode >= 400:
		return "warn"
	default:
		return "info"
	}
}
