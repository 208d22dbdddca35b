package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewRouter_CORSPreflight(t *testing.T) {
	r := NewRouter(zap.NewNop(), Options{Mode: gin.TestMode})
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://web.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, ModeFor("prod"))
	assert.Equal(t, gin.TestMode, ModeFor("test"))
	assert.Equal(t, gin.DebugMode, ModeFor("local"))
	assert.Equal(t, "0.0.0.0:5000", Addr("0.0.0.0", 5000))
}
