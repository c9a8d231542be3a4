package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/posts-project/posts/internal/app"
	"github.com/posts-project/posts/internal/auth"
	"github.com/posts-project/posts/internal/observability"
	"github.com/posts-project/posts/internal/platform/cache"
	"github.com/posts-project/posts/internal/platform/db"
	"github.com/posts-project/posts/internal/posts"
	"github.com/posts-project/posts/internal/view"
	"github.com/posts-project/posts/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	logger.Info("starting posts api", slog.String("config", cfg.String()))
	if cfg.GeneratedSecret {
		logger.Warn("SECRET_KEY not set; using a random signing secret, issued tokens will not survive a restart")
	}

	dbpool, err := db.New(ctx, cfg.DatabaseDSN(), db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.DBMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = cache.New(ctx, cfg.RedisOptions())
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-process cache", slog.Any("error", err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	metrics := observability.NewMetrics()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	codec, err := auth.NewCodec(cfg.SecretKey, cfg.Algorithm)
	if err != nil {
		logger.Error("init token codec", slog.Any("error", err))
		os.Exit(1)
	}
	authMetrics, err := auth.NewMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("register auth metrics", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(dbpool), codec, auth.ServiceConfig{
		TokenTTL:           cfg.AccessTokenTTL,
		BcryptCost:         cfg.BcryptCost,
		StrictSessionMatch: cfg.StrictSessionMatch,
	}, logger, auth.WithMetrics(authMetrics))
	authHandler := auth.NewHandler(logger, authService)

	var listCache posts.ListCache
	if redisClient != nil {
		listCache = posts.NewRedisCache(redisClient, cfg.PostsCacheTTL)
	} else {
		listCache = posts.NewMemoryCache(cfg.PostsCacheTTL, cfg.PostsCacheSize)
	}
	postsMetrics, err := posts.NewMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("register posts metrics", slog.Any("error", err))
		os.Exit(1)
	}
	postsService := posts.NewService(posts.NewRepository(dbpool), listCache, logger, posts.WithMetrics(postsMetrics))
	postsHandler := posts.NewHandler(logger, postsService)

	var inspector jobs.QueueInspector
	if redisClient != nil {
		asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("asynq inspector close", slog.Any("error", err))
			}
		}()
		inspector = asynqInspector
	}
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		AuthHandler:    authHandler,
		AuthMiddleware: auth.Middleware(authService, logger),
		PostsHandler:   postsHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
