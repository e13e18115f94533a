// Entry point: config → logger → Postgres → Redis → model registry →
// stores → recommenders → assistant pipeline → router → HTTP server
// with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autofi/ai-engine/assistant"
	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/config"
	"github.com/autofi/ai-engine/feedback"
	"github.com/autofi/ai-engine/handler"
	"github.com/autofi/ai-engine/intelligence"
	"github.com/autofi/ai-engine/llmclient"
	"github.com/autofi/ai-engine/logger"
	"github.com/autofi/ai-engine/middleware"
	"github.com/autofi/ai-engine/models"
	"github.com/autofi/ai-engine/observability"
	"github.com/autofi/ai-engine/popularquery"
	"github.com/autofi/ai-engine/recommend"
	"github.com/autofi/ai-engine/redisclient"
	"github.com/autofi/ai-engine/router"
	"github.com/autofi/ai-engine/security"
	"github.com/autofi/ai-engine/sqlexec"
	"github.com/autofi/ai-engine/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("autofi ai engine starting")

	ctx := context.Background()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	log.Info().Msg("postgres connected")

	rdb, err := redisclient.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	if err := redisclient.Ping(rdb); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	log.Info().Msg("redis connected")

	cache := caching.New(rdb, log)
	metrics := observability.NewMetrics(log)

	llm := llmclient.New(llmclient.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.OpenAIModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
		MaxConcurrency: cfg.LLMMaxConcurrency,
		MaxAttempts:    cfg.LLMMaxAttempts,
		BackoffStart:   cfg.LLMBackoffStart,
		BackoffCap:     cfg.LLMBackoffCap,
		RequestTimeout: cfg.OpenAITimeout,
	}, metrics, log)

	registry := models.New(log, models.FileLoaders(cfg.ModelPath))
	// Loading the offline-trained artifacts is best-effort and
	// non-blocking: a cold model degrades its recommender to
	// apierr.ModelNotAvailable rather than stalling startup.
	go warmModels(registry)

	users := store.NewUserStore(pool)
	vehicles := store.NewVehicleStore(pool, cache, cfg.VehicleFeaturesPath, cfg.VehicleLimit)

	content := recommend.NewContentRecommender(registry, vehicles, cache)
	collab := recommend.NewCollabRecommender(registry)
	hybrid := recommend.NewHybridRecommender(registry, users, vehicles, content, collab)
	recOrchestrator := recommend.NewOrchestrator(users, vehicles, cache, content, hybrid, collab)

	classifier, err := intelligence.NewClassifier(ctx, llm, cache, log)
	if err != nil {
		log.Fatal().Err(err).Msg("query classifier init failed")
	}
	executor := sqlexec.New(pool, cfg.DBQueryTimeout, log)
	popular := popularquery.New(pool, llm, popularquery.DefaultSimilarityThreshold, log)
	feedbackSvc := feedback.New(pool, log)

	assistantOrchestrator := assistant.NewOrchestrator(classifier, executor, llm, popular, users, assistant.Tuning{
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
	}, log)

	verifier := security.NewVerifier(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTAudience)
	authMW := middleware.NewAuthMiddleware(verifier, log)
	rateLimiter := middleware.NewRateLimiter(log, cfg.RateLimitEnabled, cfg.RateLimitRPM, cfg.RateLimitBurst)

	handlers := router.Handlers{
		Recommendations: handler.NewRecommendationsHandler(recOrchestrator, metrics, log),
		Assistant:       handler.NewAssistantHandler(assistantOrchestrator, users, cache, cfg.AIEnabled, log),
		Feedback:        handler.NewFeedbackHandler(feedbackSvc, log),
		Popular:         handler.NewPopularQueryHandler(popular, log),
		Health:          handler.NewHealthHandler(pool, registry),
	}

	mux := http.NewServeMux()
	mux.Handle("/", router.New(handlers, authMW, rateLimiter, cfg.CORSAllowedOrigins))
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	cleanupTicker := time.NewTicker(time.Minute)
	defer cleanupTicker.Stop()
	go func() {
		for range cleanupTicker.C {
			rateLimiter.Cleanup()
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("ai engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("ai engine stopped gracefully")
	}
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MinConns = int32(cfg.DBPoolMin)
	poolCfg.MaxConns = int32(cfg.DBPoolMax)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// warmModels triggers the lazy load of every offline-trained artifact at
// startup, instead of waiting for the first request to pay the cost.
func warmModels(registry *models.Registry) {
	for _, name := range []string{models.NameCollaborative, models.NameVehicleSimilarity, models.NameUserSimilarity} {
		_, _, _ = registry.Load(name)
	}
}
