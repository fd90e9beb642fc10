package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lumina-ims/lumina/internal/app"
	"github.com/lumina-ims/lumina/internal/notifications"
	"github.com/lumina-ims/lumina/internal/platform/cache"
	"github.com/lumina-ims/lumina/internal/platform/db"
	"github.com/lumina-ims/lumina/internal/requisition"
	"github.com/lumina-ims/lumina/internal/shared"
	"github.com/lumina-ims/lumina/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool, logger)
	idempotency := shared.NewIdempotencyStore(pool)
	notificationService := notifications.NewService(notifications.NewRepository(pool), redisClient)
	requisitionService := requisition.NewService(requisition.NewRepository(pool), auditLogger, notificationService, idempotency)

	lowStockJob := jobs.NewLowStockScanJob(jobs.NewPGStockReporter(pool), notificationService, logger)
	staleSweepJob := jobs.NewStaleRequestSweepJob(requisitionService, cfg.StaleRequestAge, logger)
	cleanupJob := jobs.NewIdempotencyCleanupJob(idempotency, logger)

	scanTask, err := jobs.NewStockLowScanTask(0)
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}
	staleTask, err := jobs.NewRequisitionStaleSweepTask(cfg.StaleRequestAge)
	if err != nil {
		logger.Error("build stale sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(0)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockLowScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskRequisitionStaleSweep, Handler: staleSweepJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: staleTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
