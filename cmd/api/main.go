package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"user-service/internal/core/auth"
	"user-service/internal/core/cache"
	"user-service/internal/core/config"
	"user-service/internal/core/database"
	"user-service/internal/core/logger"
	"user-service/internal/core/server"
	"user-service/internal/dispatch"
	"user-service/internal/repo"
	"user-service/internal/service"
	"user-service/internal/transport/http/handler"
	"user-service/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.WarnLevel)()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	users := repo.NewUserRepo(db)
	if cfg.DB.AutoMigrate {
		if err := users.Migrate(context.Background()); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	jwter, err := auth.NewJWTer([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.TokenTTL())
	if err != nil {
		log.Fatal("jwt setup", zap.Error(err))
	}

	opts := []service.Option{service.WithLogger(log), service.WithBcryptCost(cfg.Auth.BcryptCost)}
	deps := map[string]handler.Pinger{"db": handler.PingFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})}
	if cfg.Redis.Addr != "" {
		rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(ctx); err != nil {
			// reads fall through to the store until redis comes back
			log.Warn("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		opts = append(opts, service.WithCache(rc, cfg.CacheTTL()))
		deps["redis"] = rc
	}
	svc := service.NewUserService(users, jwter, opts...)

	reg, err := dispatch.NewRegistry(cfg.Dispatch.Services)
	if err != nil {
		log.Fatal("service registry", zap.Error(err))
	}
	siblings := dispatch.New(reg, dispatch.WithTimeout(cfg.DispatchTimeout()), dispatch.WithLogger(log))

	r := router.NewAPIEngine(router.Deps{
		Log:     log,
		Cfg:     cfg,
		Tokens:  jwter,
		Health:  handler.NewHealthHandler(deps, siblings, cfg.Dispatch.ProbePath),
		Modules: []router.Module{handler.NewUserHandler(svc)},
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user service starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("api", baseURL+cfg.App.BasePath),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("user service stopped")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.OptsFromConfig(cfg.DB, l))
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
