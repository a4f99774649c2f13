package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-check/internal/config"
	"smart-check/internal/handler"
	"smart-check/internal/logger"
	"smart-check/internal/pkg/notify"
	"smart-check/internal/pkg/throttle"
	"smart-check/internal/service"
	"smart-check/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	log := logger.Init(cfg.Log)
	gin.SetMode(gin.ReleaseMode)

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			slog.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
		slog.Info("db migrated")
	}
	st := store.New(db, store.WithProcedure(cfg.Database.LeastLoadedProcedure))

	rdb := cfg.NewRedis()
	if rdb != nil {
		defer rdb.Close()
		slog.Info("resend cooldown enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.ResendCooldown)
	}
	cooldown := throttle.NewCooldown(rdb, cfg.Redis.ResendCooldown)

	raw, err := cfg.NewRawClient()
	if err != nil {
		slog.Warn("sdk client init failed", "err", err)
	}
	catalogSync := service.NewCatalogSync(raw, cfg.MOI)
	if catalogSync != nil {
		slog.Info("catalog sync enabled", "database", cfg.MOI.DatabaseID)
	}

	mailer := notify.NewEmailNotifier(cfg.Email, log)
	users := service.NewUserService(st, mailer, cooldown)
	tasks := service.NewTaskService(st, catalogSync)
	catalog := service.NewCatalogService(st)
	reports := service.NewReportService(st, catalogSync)

	secret := []byte(cfg.Security.JWTSecret)
	r := handler.NewRouter(handler.RouterConfig{
		Auth:         handler.NewAuthHandler(users, secret, cfg.Security.TokenTTL),
		Users:        handler.NewUserHandler(users),
		Tasks:        handler.NewTaskHandler(tasks),
		Catalog:      handler.NewCatalogHandler(catalog, reports),
		DB:           st,
		Logger:       log,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RequireAuth:  cfg.Security.RequireAuth,
		JWTSecret:    secret,
		TokenTTL:     cfg.Security.TokenTTL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "require_auth", cfg.Security.RequireAuth)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
	catalogSync.Wait()
}
