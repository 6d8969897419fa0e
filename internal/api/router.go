package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/pronia/config"
	_ "github.com/d60-Lab/pronia/docs"
	"github.com/d60-Lab/pronia/internal/api/handler"
	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/internal/service"
)

// HealthCheck 依赖探活，返回 nil 表示可用
type HealthCheck func(ctx context.Context) error

// NewRouter 注册全部路由与中间件
func NewRouter(cfg *config.Config, h *handler.Handler, authn middleware.Authenticator, checks map[string]HealthCheck) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	registerValidators()

	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger())
	if cfg.Otel.Enabled {
		r.Use(otelgin.Middleware(cfg.Otel.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", healthz(checks))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	v1 := r.Group("/api/v1", limiter.Middleware())
	authed := middleware.RequireAuth(authn)

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", authed, h.Logout)
	}
	v1.GET("/me", authed, h.Me)

	profiles := v1.Group("/profiles", middleware.OptionalAuth(authn))
	{
		profiles.GET("", h.SearchProfiles)
		profiles.GET("/:id", h.GetProfile)
		profiles.GET("/:id/posts", h.ListUserPosts)
		profiles.PATCH("/:id", authed, h.UpdateProfile)
	}

	relations := v1.Group("/relations")
	{
		relations.GET("/:user_id/following", h.ListFollowing)
		relations.GET("/:user_id/followers", h.ListFollowers)
		relations.GET("/:user_id/follow", authed, h.FollowStatus)
		relations.POST("/:user_id/follow", authed, h.Follow)
		relations.DELETE("/:user_id/follow", authed, h.Unfollow)
		relations.POST("/:user_id/reconcile", authed, h.ReconcileCounts)
	}

	private := v1.Group("", authed)
	{
		private.GET("/sessions", h.ListSessions)
		private.POST("/sessions", h.CreateSession)
		private.GET("/sessions/stats", h.SessionStats)
		private.DELETE("/sessions/:id", h.DeleteSession)

		private.GET("/pieces", h.ListPieces)
		private.POST("/pieces", h.CreatePiece)
		private.GET("/pieces/:id", h.GetPiece)
		private.PATCH("/pieces/:id", h.UpdatePiece)
		private.DELETE("/pieces/:id", h.DeletePiece)

		private.POST("/posts", h.CreatePost)
		private.GET("/posts/:id", h.GetPost)
		private.DELETE("/posts/:id", h.DeletePost)
		private.POST("/posts/:id/like", h.LikePost)
		private.DELETE("/posts/:id/like", h.UnlikePost)
		private.GET("/feed", h.Feed)

		private.GET("/notifications", h.ListNotifications)
		private.POST("/notifications/read", h.MarkAllNotificationsRead)
		private.POST("/notifications/:id/read", h.MarkNotificationRead)
	}
	return r
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("piecestatus", func(fl validator.FieldLevel) bool {
			return service.ValidPieceStatus(fl.Field().String())
		})
	}
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		result := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
	}
}
