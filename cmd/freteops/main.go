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

	"github.com/freteops/freteops/internal/app"
	"github.com/freteops/freteops/internal/consignment"
	"github.com/freteops/freteops/internal/observability"
	"github.com/freteops/freteops/internal/panel"
	"github.com/freteops/freteops/internal/platform/cache"
	"github.com/freteops/freteops/internal/remote"
	"github.com/freteops/freteops/internal/shared"
	"github.com/freteops/freteops/jobs"
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

	// Sessions, the filter persistence and the panel cache all live in
	// Redis, so startup fails without it.
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

	sessionManager := shared.NewSessionManager(redisClient, "freteops_session", cfg.SessionTTL, cfg.IsProduction())

	upstream := remote.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamToken, cfg.UpstreamTimeout)
	if err := upstream.Ping(ctx); err != nil {
		logger.Warn("upstream ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	store := consignment.NewStore(upstream, logger)
	engine := consignment.NewEngine(store, logger)
	tracker := consignment.NewTracker(store, upstream, logger, cfg.FlushDebounce, metrics)
	agendaService := consignment.NewAgendaService(store, upstream, logger)
	consignmentHandler := consignment.NewHandler(logger, store, engine, tracker, agendaService, cfg.SporadicClientID)

	panelCache := panel.NewCache(redisClient, cfg.PanelCacheTTL)
	panelService := panel.NewService(upstream, panelCache, logger, cfg.SporadicClientID)
	panelHandler := panel.NewHandler(logger, panelService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		ConsignmentHandler: consignmentHandler,
		PanelHandler:       panelHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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

	// Pending cell edits are flushed before exit so nothing typed in the
	// grid is lost to the debounce window.
	tracker.Flush(shutdownCtx)
}
