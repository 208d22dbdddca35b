package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"user-service/internal/core/auth"
)

// AccessLogFields adds the request id and, on protected routes, the caller id to access log lines.
// Query strings are logged by the access logger itself, so credentials belong in headers or bodies only.
func AccessLogFields(c *gin.Context) []zapcore.Field {
	fields := []zapcore.Field{zap.String("rid", c.GetString(KeyRequestID))}
	if uid, ok := auth.SubjectFrom(c.Request.Context()); ok {
		fields = append(fields, zap.String("uid", uid))
	}
	return fields
}
