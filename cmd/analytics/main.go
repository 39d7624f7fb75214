package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/assistant"
	"github.com/boddenberg/onsite-analytics-go/internal/config"
	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/handler"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/cache"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/llm"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/memstore"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/postgres"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/resilience"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/supabase"
	"github.com/boddenberg/onsite-analytics-go/internal/port"
	"github.com/boddenberg/onsite-analytics-go/internal/service"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env", ".env.local")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.String("llm_model", cfg.LLMModel),
		zap.Bool("llm_configured", cfg.OpenAIAPIKey != ""),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "onsite-analytics")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		BreakerTimeout: cfg.BreakerTimeout,
	}
	cb := resilience.NewCircuitBreaker("store", resilienceCfg, logger)

	// --- Store ---
	store, closeStore := openStore(cfg, cb, logger)
	defer closeStore()

	// --- Cache ---
	statsCache := cache.New[*domain.DashboardStats](cfg.CacheTTL)
	defer statsCache.Close()

	// --- LLM ---
	// nil *OpenAIClient não pode virar interface não-nil
	var completer port.Completer
	if c := llm.NewOpenAIClient(llm.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.LLMTimeout,
	}, resilience.NewBulkhead(cfg.MaxConcurrency), logger); c != nil {
		completer = c
	} else {
		logger.Warn("OPENAI_API_KEY not set, assistant will answer with a configuration notice")
	}

	// --- Services ---
	aggregator := service.NewAggregator(store, metrics, logger)
	dashboard := service.NewDashboard(store, statsCache, metrics, logger)
	chat := assistant.New(aggregator, completer, cfg.LLMModel, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(chat, dashboard, store, handler.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
	}, metrics, logger)

	// --- Server ---
	// WriteTimeout cobre o timeout do LLM mais as consultas ao store
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
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
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore builds the configured port.Store and its cleanup func.
func openStore(cfg *config.Config, cb *gobreaker.CircuitBreaker, logger *zap.Logger) (port.Store, func()) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		logger.Info("using Postgres as data backend")
		return postgres.NewStore(db, cb, logger), func() { db.Close() }

	case config.BackendMemory:
		logger.Warn("using in-memory demo dataset as data backend")
		return memstore.Seeded(time.Now()), func() {}

	default:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		return supabase.NewClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, cb, logger), func() {}
	}
}
