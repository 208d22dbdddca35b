package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"user-service/internal/core/auth"
	resp "user-service/internal/transport/http/response"
)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthJWT rejects requests without a valid bearer token before any handler runs.
// On success the subject is available through auth.SubjectFrom(c.Request.Context()).
func AuthJWT(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, _ := strings.Cut(c.GetHeader("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(http.StatusUnauthorized, "No token, authorization denied"))
			return
		}
		uid, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(http.StatusUnauthorized, "Token is not valid"))
			return
		}
		c.Request = c.Request.WithContext(auth.WithSubject(c.Request.Context(), uid))
		c.Next()
	}
}
