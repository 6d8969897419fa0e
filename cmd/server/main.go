package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/pronia/config"
	"github.com/d60-Lab/pronia/internal/api"
	"github.com/d60-Lab/pronia/internal/api/handler"
	"github.com/d60-Lab/pronia/internal/cache"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/auth"
	rediscli "github.com/d60-Lab/pronia/pkg/cache"
	"github.com/d60-Lab/pronia/pkg/database"
	"github.com/d60-Lab/pronia/pkg/logger"
	"github.com/d60-Lab/pronia/pkg/tracing"
)

// @title Pronia API
// @version 1.0
// @description Pronia 音乐练习社交服务
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flushSentry, err := tracing.InitSentry(cfg.Sentry)
	if err != nil {
		logger.Fatal("init sentry", zap.Error(err))
	}
	defer flushSentry()
	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Otel)
	if err != nil {
		logger.Fatal("init tracer", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("database handle", zap.Error(err))
	}

	checks := map[string]api.HealthCheck{"db": func(ctx context.Context) error { return sqlDB.PingContext(ctx) }}

	// Redis 不可用时降级为直接读库
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = rediscli.NewRedis(ctx, cfg.Redis); err != nil {
			logger.Warn("redis unavailable, running without cache", zap.Error(err))
			rdb = nil
		} else {
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}
	store := cache.New(rdb, cfg.Redis.CacheTTL)

	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db))

	replicator := service.NewCounterReplicator(users, cfg.Relation.QueueSize)
	replicator.OnApplied(func(ctx context.Context, userID string) { store.InvalidateProfiles(ctx, userID) })
	stopReplicator := replicator.Start(cfg.Relation.Workers)

	fanout := service.NewFanoutWorker(db, follows, cfg.Feed.Workers, cfg.Feed.BatchSize, cfg.Feed.ClaimLimit, cfg.Feed.PollInterval)
	stopFanout := fanout.Start()

	authSvc := service.NewAuthService(users, auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expire))
	h := handler.New(handler.Services{
		Auth:          authSvc,
		Profiles:      service.NewProfileService(users, store),
		Practice:      service.NewPracticeService(repository.NewSessionRepository(db)),
		Library:       service.NewLibraryService(repository.NewPieceRepository(db)),
		Relations:     service.NewRelationshipService(follows, users, replicator, store, notifications),
		Posts:         service.NewPostService(service.NewPublisher(db), repository.NewPostRepository(db), repository.NewLikeRepository(db), repository.NewFeedRepository(db), notifications),
		Notifications: notifications,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(cfg, h, authSvc, checks),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("db", cfg.Database.Driver), zap.Bool("cache", store != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := stopFanout(shutdownCtx); err != nil {
		logger.Warn("fanout workers did not stop in time", zap.Error(err))
	}
	if err := stopReplicator(shutdownCtx); err != nil {
		logger.Warn("counter queue not drained, run reconcile", zap.Int("queued", replicator.QueueLen()), zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = sqlDB.Close()
}
