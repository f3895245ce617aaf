package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/logger"
)

// Recovery returns a middleware that turns panics into a 500 "error" envelope.
// It logs the panic with the request ID and stack trace.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log := logger.Logger()
				log.Error().
					Str("request_id", GetRequestID(c)).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("PANIC recovered")

				if c.Writer.Written() {
					c.Abort()
					return
				}
				AbortWithCode(c, http.StatusInternalServerError, apperror.CodeInternal, i18n.ErrKeyInternalError)
			}
		}()
		c.Next()
	}
}
