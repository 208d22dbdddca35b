package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"user-service/internal/dispatch"
)

const KeyRequestID = dispatch.KeyRequestID

// RequestID reuses the caller's X-Request-ID or mints one, echoes it, and puts it on the
// request context so outbound dispatch calls carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Request = c.Request.WithContext(dispatch.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}
