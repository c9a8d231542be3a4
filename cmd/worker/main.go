package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/posts-project/posts/internal/app"
	"github.com/posts-project/posts/internal/auth"
	jobmetrics "github.com/posts-project/posts/internal/jobs"
	"github.com/posts-project/posts/internal/platform/db"
	"github.com/posts-project/posts/jobs"
)

func main() {
	purgeNow := flag.Bool("purge-now", false, "enqueue one session purge and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if !cfg.RedisEnabled() {
		logger.Error("REDIS_ADDR is required by the worker")
		os.Exit(1)
	}
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	if *purgeNow {
		client := jobs.NewClient(redisOpts)
		defer client.Close()
		info, err := client.EnqueueSessionsPurge(ctx, "manual")
		if err != nil {
			logger.Error("enqueue session purge", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("session purge enqueued", slog.String("task_id", info.ID))
		return
	}

	pool, err := db.New(ctx, cfg.DatabaseDSN(), db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	codec, err := auth.NewCodec(cfg.SecretKey, cfg.Algorithm)
	if err != nil {
		logger.Error("init token codec", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(pool), codec, auth.ServiceConfig{TokenTTL: cfg.AccessTokenTTL}, logger)

	metrics, err := jobmetrics.NewMetrics(nil)
	if err != nil {
		logger.Error("register job metrics", slog.Any("error", err))
		os.Exit(1)
	}
	purgeJob := jobs.NewSessionPurgeJob(authService, logger, metrics)

	purgeTask, err := jobs.NewSessionsPurgeTask("cron")
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SessionPurgeCron, Task: purgeTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
