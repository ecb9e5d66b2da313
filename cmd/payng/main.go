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

	"github.com/paylite-technologies/payng/internal/app"
	"github.com/paylite-technologies/payng/internal/auth"
	"github.com/paylite-technologies/payng/internal/authz"
	"github.com/paylite-technologies/payng/internal/billing"
	"github.com/paylite-technologies/payng/internal/guard"
	"github.com/paylite-technologies/payng/internal/observability"
	"github.com/paylite-technologies/payng/internal/platform/cache"
	"github.com/paylite-technologies/payng/internal/platform/db"
	"github.com/paylite-technologies/payng/internal/shared"
	"github.com/paylite-technologies/payng/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "payng_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	routeTable := guard.DefaultTable()
	if cfg.RouteTablePath != "" {
		routeTable, err = guard.LoadTable(cfg.RouteTablePath)
		if err != nil {
			logger.Error("load route table", slog.Any("error", err))
			os.Exit(1)
		}
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	authHandler.OnLinkChange = func(ctx context.Context, accountID string) {
		if _, err := jobsClient.EnqueueStudentResync(ctx, accountID); err != nil {
			logger.Warn("enqueue student resync", slog.Any("error", err))
		}
	}

	billingRepo := billing.NewRepository(dbpool)
	billingHandler := billing.NewHandler(logger, billingRepo)
	billingHandler.Audit = shared.NewAuditLogger(dbpool)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		RuleProvider:   authz.NewProvider(),
		RouteTable:     routeTable,
		AuthHandler:    authHandler,
		BillingHandler: billingHandler,
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
