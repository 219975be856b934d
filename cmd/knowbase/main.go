package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowbase/internal/cache"
	"github.com/kailas-cloud/knowbase/internal/chunker"
	"github.com/kailas-cloud/knowbase/internal/config"
	"github.com/kailas-cloud/knowbase/internal/db"
	dbRedis "github.com/kailas-cloud/knowbase/internal/db/redis"
	"github.com/kailas-cloud/knowbase/internal/domain"
	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
	localEmb "github.com/kailas-cloud/knowbase/internal/embedding"
	logpkg "github.com/kailas-cloud/knowbase/internal/logger"
	"github.com/kailas-cloud/knowbase/internal/metrics"
	documentrepo "github.com/kailas-cloud/knowbase/internal/repository/document"
	"github.com/kailas-cloud/knowbase/internal/repository/embcache"
	quotarepo "github.com/kailas-cloud/knowbase/internal/repository/quota"
	chiTransport "github.com/kailas-cloud/knowbase/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/knowbase/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/knowbase/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/knowbase/internal/usecase/health"
	quotauc "github.com/kailas-cloud/knowbase/internal/usecase/quota"
	raguc "github.com/kailas-cloud/knowbase/internal/usecase/rag"
	usageuc "github.com/kailas-cloud/knowbase/internal/usecase/usage"
	"github.com/kailas-cloud/knowbase/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting knowbase API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterHTTPMetrics()

	// Take the first vectorizer config
	var vecCfg config.VectorizerConfig
	var provName string
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		provName = vc.Provider
		break
	}
	if provName == "" {
		provName = "local"
		vecCfg = config.VectorizerConfig{Provider: "local"}
	}
	provCfg := cfg.Embedding.Providers[provName]

	// Single budget tracker shared by the embedder chain, the orchestrator's
	// pre-write gate and the usage endpoint.
	var budget *quotauc.Tracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := quotauc.ActionWarn
		if budgetCfg.Action == "reject" {
			action = quotauc.ActionReject
		}
		budget = quotauc.NewTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		budgetStore := quotarepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*Tracker)(nil) wrapped in BudgetRecorder != nil.
	var recorder embeddinguc.BudgetRecorder
	if budget != nil {
		recorder = budget
	}

	docEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.DocumentInstruction, &cfg, store, recorder, logger,
	)
	queryEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.QueryInstruction, &cfg, store, recorder, logger,
	)

	dimensions := vecCfg.Dimensions
	if dimensions == 0 {
		dimensions = localEmb.DefaultDimensions
	}
	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", dimensions),
	)

	docRepo := documentrepo.New(store)
	docCache := cache.New[domdoc.Document](
		cfg.Cache.DocumentMaxSize,
		time.Duration(cfg.Cache.DocumentTTLSec)*time.Second,
	)
	splitter := chunker.New(chunker.Config{
		ChunkSize: cfg.Retrieval.ChunkSize,
		Overlap:   cfg.Retrieval.ChunkOverlap,
	})

	var gate raguc.Quota = allowAll{}
	if budget != nil {
		gate = budget
	}

	ragSvc := raguc.New(
		docRepo, docCache, docEmbedder, queryEmbedder, gate, splitter, dimensions, logger,
	).WithSearchBounds(cfg.Retrieval.MaxLimit, cfg.Retrieval.MaxCandidates)

	var viewer usageuc.BudgetViewer
	if budget != nil {
		viewer = budget
	}
	usageSvc := usageuc.New(viewer)

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(docEmbedder))

	server := chiTransport.NewServer(ragSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// allowAll is the quota gate when no budget is configured.
type allowAll struct{}

func (allowAll) Allow(context.Context, int64) error { return nil }

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> cached -> instrumented -> instruction.
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	cfg *config.Config,
	store db.Store,
	recorder embeddinguc.BudgetRecorder,
	logger *zap.Logger,
) domain.Embedder {
	var base domain.Embedder
	if provName == "local" {
		base = localEmb.NewLocal(vecCfg.Dimensions)
	} else {
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			Provider:   provName,
			Logger:     logger,
		})
	}

	embedder := base
	if store != nil {
		embedder = embcache.New(
			base, store,
			time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, vecCfg.Model, recorder, logger)

	// Instruction prefix stays outermost so the cache key covers the prefixed text
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
