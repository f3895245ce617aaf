package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/logger"
	"github.com/guttosm/campus-access/internal/service"
)

// messageKeys maps errors with a dedicated message to their translation key. Other errors
// use the message of their envelope code.
var messageKeys = []struct {
	err error
	key string
}{
	{service.ErrInvalidCredentials, i18n.ErrKeyInvalidCredentials},
	{service.ErrUserExists, i18n.ErrKeyUserExists},
	{service.ErrApplicationNotPending, i18n.ErrKeyApplicationNotPending},
	{service.ErrRoleChanged, i18n.ErrKeyRoleChanged},
}

// NewErrorResponse builds the envelope for err. Server errors never expose err's text.
func NewErrorResponse(c *gin.Context, err error) (int, dto.ErrorResponse) {
	status := apperror.StatusCode(err)
	code := apperror.Code(err)

	key := i18n.KeyForCode(code)
	for _, mk := range messageKeys {
		if errors.Is(err, mk.err) {
			key = mk.key
			break
		}
	}

	resp := dto.NewError(status, code, i18n.GetTranslator().Translate(key, i18n.GetLocale(c))).
		WithRequestID(GetRequestID(c))

	var verr *apperror.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Details()
	}
	return status, resp
}

// AbortWithError writes the envelope for err and stops the handler chain. The error is
// attached to the context so ErrorHandler logs server failures.
func AbortWithError(c *gin.Context, err error) {
	status, resp := NewErrorResponse(c, err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// AbortWithCode writes an envelope with an explicit status, code and message key.
func AbortWithCode(c *gin.Context, status int, code, messageKey string) {
	resp := dto.NewError(status, code, i18n.GetTranslator().Translate(messageKey, i18n.GetLocale(c))).
		WithRequestID(GetRequestID(c))
	c.AbortWithStatusJSON(status, resp)
}

// ErrorHandler logs errors attached to the gin context and writes a 500 envelope when
// the handler produced no response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		log := logger.Logger()
		log.Error().
			Str("request_id", GetRequestID(c)).
			Err(err.Err).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("Request error")

		if !c.Writer.Written() {
			AbortWithCode(c, http.StatusInternalServerError, apperror.CodeInternal, i18n.ErrKeyInternalError)
		}
	}
}
