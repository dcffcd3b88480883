package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mostrador/backoffice/internal/app"
	"github.com/mostrador/backoffice/internal/backoffice"
	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/catalogs"
	"github.com/mostrador/backoffice/internal/console"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/observability"
	"github.com/mostrador/backoffice/internal/platform/cache"
	"github.com/mostrador/backoffice/internal/shared"
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

	table := capability.DefaultTable()
	if cfg.CapabilitiesFile != "" {
		table, err = capability.LoadTable(cfg.CapabilitiesFile)
		if err != nil {
			logger.Error("load capabilities", slog.String("file", cfg.CapabilitiesFile), slog.Any("error", err))
			os.Exit(1)
		}
	}

	screens, err := backoffice.Screens(editor.NewValidator())
	if err != nil {
		logger.Error("register screens", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "backoffice_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	catalogCache := cache.NewVersioned(redisClient, catalogs.CacheNamespace, cfg.CatalogCacheTTL)
	catalogCache.ListenForInvalidation(ctx)

	metrics := observability.NewMetrics()

	consoleHandler := console.NewHandler(console.Deps{
		Logger:     logger,
		APIBaseURL: cfg.APIBaseURL,
		APITimeout: cfg.APITimeout,
		Sessions:   sessionManager,
		CSRF:       csrfManager,
		Screens:    screens,
		Table:      table,
		Catalogs:   catalogs.NewLoader(catalogCache, logger),
		Guard:      shared.NewSubmitGuard(redisClient, cfg.SubmitGuardTTL),
		Redis:      redisClient,
		Audit:      shared.NewAuditLogger(logger),
		Metrics:    metrics,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Console:        consoleHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
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
