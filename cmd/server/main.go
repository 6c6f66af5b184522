package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/api"
	"github.com/mnemora/mnemora/internal/config"
	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/embedding"
	"github.com/mnemora/mnemora/internal/graph"
	"github.com/mnemora/mnemora/internal/llm"
	"github.com/mnemora/mnemora/internal/recall"
	"github.com/mnemora/mnemora/internal/service"
	"github.com/mnemora/mnemora/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	graphStore, err := store.NewSQLiteStore(config.DatabasePath(), logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() { _ = graphStore.Close() }()
	logger.Info("database opened", zap.String("path", config.DatabasePath()))

	// External clients via provider factories
	var embedder domain.EmbeddingClient
	embedder, err = embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey(), config.OpenAIBaseURL())
	if err != nil {
		logger.Fatal("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	}
	if embedder != nil {
		embedder, err = embedding.NewCache(embedder, config.EmbeddingCacheSize())
		if err != nil {
			logger.Fatal("embedding cache initialization failed", zap.Error(err))
		}
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	} else {
		logger.Info("no embedding provider configured, semantic recall disabled")
	}

	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey(), config.OpenAIBaseURL())
	if err != nil {
		logger.Fatal("LLM client initialization failed",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
	}
	if llmClient != nil {
		logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))
	} else {
		logger.Info("no LLM provider configured, consolidation uses heuristic merge")
	}

	g := graph.New()
	weights := recall.Weights{
		Semantic:    config.SemanticWeight(),
		Keyword:     config.KeywordWeight(),
		Associative: config.AssociativeWeight(),
		Temporal:    config.TemporalWeight(),
		Strength:    config.StrengthWeight(),
	}
	engine := recall.NewEngine(g, embedder, weights, logger)

	system := service.NewMemorySystem(g, engine, graphStore, service.Options{
		InjectionThreshold:  config.InjectionThreshold(),
		MaxRecallMemories:   config.MaxRecallMemories(),
		MaxInjectedMemories: config.MaxInjectedMemories(),
	}, logger)

	if err := system.Load(ctx); err != nil {
		logger.Fatal("failed to load memory graph", zap.Error(err))
	}
	stats := system.Stats()
	logger.Info("memory graph loaded",
		zap.Int("concepts", stats.Concepts),
		zap.Int("memories", stats.Memories),
		zap.Int("connections", stats.Connections))

	forgetting := service.NewForgettingEngine(g, config.ForgetThreshold(), logger)
	consolidation := service.NewConsolidationEngine(g, llmClient, config.MaxMemoriesPerTopic(), logger)
	worker := service.NewMaintenanceWorker(system, forgetting, consolidation, logger)
	worker.SetInterval(config.MaintenanceInterval())
	worker.Start()

	app := api.NewApp(system, worker, api.Options{
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// Persist the live graph before exit
	saveCtx, cancelSave := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSave()
	if err := system.Save(saveCtx); err != nil {
		logger.Error("failed to save memory graph on shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
