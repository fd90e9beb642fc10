package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumina-ims/lumina/internal/analyticsproxy"
	"github.com/lumina-ims/lumina/internal/app"
	"github.com/lumina-ims/lumina/internal/audit"
	"github.com/lumina-ims/lumina/internal/auth"
	"github.com/lumina-ims/lumina/internal/branches"
	"github.com/lumina-ims/lumina/internal/categories"
	"github.com/lumina-ims/lumina/internal/dashboard"
	"github.com/lumina-ims/lumina/internal/notifications"
	"github.com/lumina-ims/lumina/internal/platform/cache"
	"github.com/lumina-ims/lumina/internal/platform/db"
	"github.com/lumina-ims/lumina/internal/products"
	"github.com/lumina-ims/lumina/internal/requisition"
	"github.com/lumina-ims/lumina/internal/shared"
	"github.com/lumina-ims/lumina/internal/transfers"
	"github.com/lumina-ims/lumina/internal/users"
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
		logger.Error("connect postgres", slog.Any("error", err))
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
	idempotencyStore := shared.NewIdempotencyStore(pool)
	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(pool), sessions, auditLogger)
	authHandler := auth.NewHandler(logger, authService)

	usersService := users.NewService(users.NewRepository(pool), auditLogger)
	usersHandler := users.NewHandler(logger, usersService)

	branchesService := branches.NewService(branches.NewRepository(pool), auditLogger)
	branchesHandler := branches.NewHandler(logger, branchesService)

	categoriesService := categories.NewService(categories.NewRepository(pool), auditLogger)
	categoriesHandler := categories.NewHandler(logger, categoriesService)

	productsService := products.NewService(products.NewRepository(pool), auditLogger, jobsClient)
	productsHandler := products.NewHandler(logger, productsService)

	notificationsService := notifications.NewService(notifications.NewRepository(pool), redisClient)
	notificationsHandler := notifications.NewHandler(logger, notificationsService)

	requisitionService := requisition.NewService(requisition.NewRepository(pool), auditLogger, notificationsService, idempotencyStore)
	requisitionHandler := requisition.NewHandler(logger, requisitionService)

	transfersHandler := transfers.NewHandler(logger, transfers.NewRepository(pool))

	auditHandler := audit.NewHandler(logger, audit.NewRepository(pool))

	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), redisClient, cfg.DashboardCacheTTL)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	analyticsClient := analyticsproxy.NewClient(cfg.AnalyticsURL, cfg.AnalyticsTimeout)
	analyticsHandler := analyticsproxy.NewHandler(logger, analyticsClient)

	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		BranchesHandler:      branchesHandler,
		CategoriesHandler:    categoriesHandler,
		ProductsHandler:      productsHandler,
		RequisitionHandler:   requisitionHandler,
		TransfersHandler:     transfersHandler,
		NotificationsHandler: notificationsHandler,
		AuditHandler:         auditHandler,
		DashboardHandler:     dashboardHandler,
		AnalyticsHandler:     analyticsHandler,
		JobsHandler:          jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
