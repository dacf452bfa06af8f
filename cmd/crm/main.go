package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/companychat/crm-backend-go/internal/config"
	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/handler"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/infra/resilience"
	"github.com/companychat/crm-backend-go/internal/infra/sqlite"
	"github.com/companychat/crm-backend-go/internal/infra/supabase"
	"github.com/companychat/crm-backend-go/internal/infra/webhook"
	"github.com/companychat/crm-backend-go/internal/service"
	"github.com/companychat/crm-backend-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("store_ttl", cfg.StoreTTL),
		zap.String("sqlite_path", cfg.SQLitePath),
		zap.Int("webhook_max_retries", cfg.WebhookMaxRetries),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required: client records live in Supabase")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("SUPABASE_JWT_SECRET is required to validate session tokens")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "companychat-crm")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Settings blob (local sqlite) ---
	settingsDB, err := sqlite.Open(cfg.SQLitePath, logger)
	if err != nil {
		logger.Fatal("failed to open settings database", zap.Error(err))
	}
	defer settingsDB.Close()

	settingsStore := store.NewSettingsStore(settingsDB, logger)
	if err := settingsStore.Load(context.Background()); err != nil {
		var corrupt *domain.ErrCorruptSettings
		if errors.As(err, &corrupt) {
			logger.Fatal("settings blob is corrupt; fix or remove the stored value before restarting",
				zap.String("sqlite_path", cfg.SQLitePath),
				zap.Error(err),
			)
		}
		logger.Fatal("failed to load settings", zap.Error(err))
	}

	// --- Remote persistence (Supabase PostgREST) ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	cb := resilience.NewCircuitBreaker("supabase")
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		logger,
	)

	// --- Per-owner client mirrors ---
	stores := store.NewManager(supabaseClient, cfg.StoreTTL, metrics, logger)

	// --- Integration webhooks ---
	dispatcher := webhook.NewDispatcher(
		httpClient,
		settingsStore,
		resilience.Config{
			MaxRetries:     cfg.WebhookMaxRetries,
			InitialBackoff: cfg.WebhookInitialBackoff,
			MaxConcurrency: cfg.WebhookMaxConcurrency,
		},
		cfg.WebhookTimeout,
		metrics,
		logger,
	)

	// --- Services ---
	sessionSvc := service.NewSessionService([]byte(cfg.JWTSecret))
	clientSvc := service.NewClientService(stores, settingsStore, dispatcher, metrics, logger)
	reportingSvc := service.NewReportingService(stores, logger)
	settingsSvc := service.NewSettingsService(settingsStore, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Clients:   clientSvc,
		Reporting: reportingSvc,
		Settings:  settingsSvc,
		Sessions:  sessionSvc,
		DB:        supabaseClient,
		Metrics:   metrics,
		Logger:    logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
