package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/service"
)

const auditWriteTimeout = 5 * time.Second

// AuditLog records a user action such as a login or logout.
func AuditLog(loggingService service.LoggingService, c *gin.Context, actionType, message string, fields map[string]any) {
	entry := newRequestEntry(c, "info", message)
	entry.ActionType = actionType
	entry.Fields = fields
	submitEntry(loggingService, entry)
}

// AuditLogError records a failed user action, such as a rejected login.
func AuditLogError(loggingService service.LoggingService, c *gin.Context, actionType, message string, err error, fields map[string]any) {
	entry := newRequestEntry(c, "error", message)
	entry.ActionType = actionType
	entry.Fields = fields
	if err != nil {
		entry.Error = err.Error()
	}
	submitEntry(loggingService, entry)
}

// newRequestEntry fills the request and caller fields of a log entry.
func newRequestEntry(c *gin.Context, level, message string) *model.LogEntry {
	entry := &model.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		RequestID: GetRequestID(c),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims, ok := GetClaims(c); ok {
		entry.UserID = claims.UserID.Hex()
		entry.UserEmail = claims.Email
	}
	return entry
}

// submitEntry hands entry to the async logger, or writes it in the background when none
// is installed.
func submitEntry(loggingService service.LoggingService, entry *model.LogEntry) {
	if loggingService == nil {
		return
	}
	if al := GetAsyncLogger(); al != nil {
		al.Log(entry)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		_ = loggingService.CreateLog(ctx, entry)
	}()
}
