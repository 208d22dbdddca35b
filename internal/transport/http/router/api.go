package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"user-service/internal/core/config"
	"user-service/internal/core/server"
	httpez "user-service/internal/transport/http/ez"
	"user-service/internal/transport/http/handler"
	mdw "user-service/internal/transport/http/middleware"
	resp "user-service/internal/transport/http/response"
)

type Deps struct {
	Log    *zap.Logger
	Cfg    *config.Config
	Tokens mdw.TokenVerifier
	Health *handler.HealthHandler
	// mounted under app.base_path
	Modules []Module
}

func NewAPIEngine(d Deps) *gin.Engine {
	lim := d.Cfg.Limits
	r := server.NewRouter(d.Log, server.Options{
		Mode:       server.ModeFor(d.Cfg.App.Env),
		QuietPaths: []string{"/health", "/metrics"},
		LogFields:  mdw.AccessLogFields,
	})

	r.Use(
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.Recovery(d.Log),
		mdw.RateLimitPerIP(rate.Limit(lim.RPS), lim.Burst, 10*time.Minute),
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.RequestTimeoutSec)*time.Second),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error(http.StatusNotFound, ""))
	})

	if d.Health != nil {
		r.GET("/health", d.Health.Live)
		r.GET("/ready", d.Health.Ready)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pub := httpez.New(r.Group(d.Cfg.App.BasePath), d.Log)
	priv := pub.Group("", mdw.AuthJWT(d.Tokens))
	mountAll(pub, priv, d.Modules)

	return r
}
