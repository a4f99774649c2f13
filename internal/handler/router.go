package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"smart-check/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Tasks   *TaskHandler
	Catalog *CatalogHandler
	DB      Pinger
	Logger  *slog.Logger

	MaxBodyBytes int64
	// RequireAuth puts every route except register, validate-email and
	// sign-in behind a bearer token.
	RequireAuth bool
	JWTSecret   []byte
	TokenTTL    time.Duration
}

func NewRouter(rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(rc.Logger), middleware.BodyLimit(rc.MaxBodyBytes))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-New-Token"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		if rc.DB != nil {
			if err := rc.DB.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": gin.H{"message": err.Error()}})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api")
	public.POST("/auth/register", rc.Auth.Register)
	public.POST("/auth/validate-email", rc.Auth.ValidateEmail)
	public.POST("/sign-in", rc.Auth.SignIn)

	api := r.Group("/api")
	if rc.RequireAuth {
		api.Use(middleware.JWTAuth(rc.JWTSecret, rc.TokenTTL))
	}
	api.GET("/users", rc.Users.List)
	api.GET("/users/:userId/data", rc.Users.Data)
	api.POST("/users/:userId/update", rc.Users.Update)
	api.GET("/me/:userId", rc.Users.Me)

	api.GET("/tasks", rc.Tasks.List)
	api.POST("/tasks", rc.Tasks.Create)
	api.GET("/tasks/user/:userId", rc.Tasks.ListForUser)
	api.POST("/tasks/start", rc.Tasks.Start)
	api.POST("/tasks/finish", rc.Tasks.Finish)
	api.GET("/tasks/:id", rc.Tasks.Get)
	api.GET("/tasks/:id/progress", rc.Tasks.Progress)

	api.GET("/activities", rc.Catalog.Activities)
	api.GET("/problems", rc.Catalog.Problems)
	api.POST("/reports", rc.Catalog.CreateReport)

	return r
}
