package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adivardh/studyreel/internal/cache"
	"github.com/adivardh/studyreel/internal/config"
	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/generate"
	"github.com/adivardh/studyreel/internal/ingest"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/pipeline"
	"github.com/adivardh/studyreel/internal/plan"
	"github.com/adivardh/studyreel/internal/provider"
	"github.com/adivardh/studyreel/internal/usage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	repo := database.NewRepository(db)

	// Initialize cache. The service degrades to database-only reads when
	// redis is unreachable.
	var redisCache *cache.Cache
	redisCache, err = cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warnf("Redis unavailable, running without cache: %v", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Initialize services
	providerClient := provider.NewClient(cfg.Provider, logger)
	model := generate.NewOpenAIModel(cfg.Generator, logger)

	var metadataCache ingest.MetadataCache
	var planCache plan.PlanCache
	if redisCache != nil {
		metadataCache = redisCache
		planCache = redisCache
	}

	ingestSvc := ingest.NewService(repo, providerClient, metadataCache, cfg.Quota.MetadataTTL, logger)
	planSvc := plan.NewService(repo, planCache, cfg.Quota.FreeDailyLimit, cfg.Quota.PlanCacheTTL, logger)
	recorder := usage.NewRecorder(repo, "openai", logger)
	genSvc := generate.NewService(repo, model, recorder, logger)
	pipelineSvc := pipeline.NewService(repo, ingestSvc, planSvc, genSvc, logger)

	api := &API{
		db:       db,
		cache:    redisCache,
		repo:     repo,
		pipeline: pipelineSvc,
		plans:    planSvc,
		logger:   logger,
	}

	router := setupRouter(api, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
