package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/chunker"
	"github.com/jmorrel/helpqa/internal/config"
	"github.com/jmorrel/helpqa/internal/db"
	"github.com/jmorrel/helpqa/internal/embedcache"
	"github.com/jmorrel/helpqa/internal/handler"
	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/indexstore"
	"github.com/jmorrel/helpqa/internal/job"
	"github.com/jmorrel/helpqa/internal/middleware"
	"github.com/jmorrel/helpqa/internal/prompt"
	"github.com/jmorrel/helpqa/internal/repo"
	"github.com/jmorrel/helpqa/internal/retriever"
	"github.com/jmorrel/helpqa/internal/schedule"
	"github.com/jmorrel/helpqa/internal/service"
	"github.com/jmorrel/helpqa/internal/worker"
)

func main() {
	var configPath string
	var inputPath string

	rootCmd := &cobra.Command{
		Use:   "helpqa",
		Short: "support agent QA backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "build the vector index from a document csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}
			return runIndex(cfg, inputPath)
		},
	}
	indexCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	indexCmd.Flags().StringVar(&inputPath, "input", "", "path to documents csv")

	rootCmd.AddCommand(runCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func newEmbedder(cfg *config.Config, provider ai.IProvider, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder,
		cfg.Query.EmbedCacheSize, time.Duration(cfg.Query.EmbedCacheTTLMin)*time.Minute)
	return embedder
}

func providerArgs(cfg *config.Config) interface{} {
	if cfg.AI.Data != nil {
		return cfg.AI.Data
	}
	return cfg.AI
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database == nil {
		return nil, nil
	}
	conn, err := db.Open(*cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("index_store", cfg.Index.Store.Type),
	)

	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	var jobStore repo.JobStore = repo.NewMemoryJobStore()
	var cacheRepo *repo.EmbeddingCacheRepo
	if conn != nil {
		jobStore = repo.NewQueryJobRepo(conn)
		cacheRepo = repo.NewEmbeddingCacheRepo(conn)
	}

	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs(cfg))
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	batch := ai.NewBatchEmbedder(newEmbedder(cfg, provider, cacheRepo), cfg.Retrieval.EmbeddingBatchSize)
	generator := ai.NewGenerator(provider, cfg.AI.Model, cfg.Retrieval.GenerationMaxTokens)

	store, err := indexstore.New(cfg.Index.Store)
	if err != nil {
		return fmt.Errorf("init index store: %w", err)
	}
	idx, err := index.Load(context.Background(), store, cfg.Index.BaseKey)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("index loaded",
		zap.Int("size", idx.Size()), zap.Int("dimension", idx.Dimension()))

	pool := worker.NewPool(cfg.Query.Workers, cfg.Query.QueueSize)
	defer pool.Stop()

	ret := retriever.New(batch, idx, cfg.Retrieval.K)
	assembler := prompt.NewAssembler(prompt.NewTokenCounter(), cfg.Retrieval.PromptTokenBudget)
	queries := service.NewQueryService(jobStore, ret, assembler, generator, pool,
		cfg.Query.AnswerCacheSize, time.Duration(cfg.Query.AnswerCacheTTLMin)*time.Minute)

	scheduler := schedule.NewCronScheduler()
	retention := time.Duration(cfg.Query.RetentionHours) * time.Hour
	if err := scheduler.AddJob(job.NewQueryCleanupJob(jobStore, retention), cfg.Query.CleanupCron); err != nil {
		return err
	}
	if cacheRepo != nil {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, 30), cfg.Query.CleanupCron); err != nil {
			return err
		}
	}

	deps := handler.RouterDeps{
		Queries: handler.NewQueryHandler(queries),
		Health:  handler.NewHealthHandler(idx),
	}
	middlewares := []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.CORS(nil),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.Query.RateLimitMS > 0 {
		middlewares = append(middlewares, middleware.RateLimit(time.Duration(cfg.Query.RateLimitMS)*time.Millisecond))
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(middlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIndex(cfg *config.Config, inputPath string) error {
	ctx := context.Background()

	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	var cacheRepo *repo.EmbeddingCacheRepo
	if conn != nil {
		cacheRepo = repo.NewEmbeddingCacheRepo(conn)
	}

	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs(cfg))
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	batch := ai.NewBatchEmbedder(newEmbedder(cfg, provider, cacheRepo), cfg.Retrieval.EmbeddingBatchSize)

	store, err := indexstore.New(cfg.Index.Store)
	if err != nil {
		return fmt.Errorf("init index store: %w", err)
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	ingest := service.NewIngestService(chunker.New(cfg.Retrieval.ChunkSizeChars), batch)
	idx, err := ingest.Ingest(ctx, file, store, cfg.Index.BaseKey)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("index persisted",
		zap.String("base_key", cfg.Index.BaseKey),
		zap.Int("size", idx.Size()),
		zap.Int("dimension", idx.Dimension()),
	)
	return nil
}
