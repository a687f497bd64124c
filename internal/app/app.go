package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/cache"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/db"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/extractor"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/repository"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/services"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/storage"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// App holds the wired dependencies shared by the server and the CLI.
type App struct {
	Config    *config.Config
	Logger    *utils.Logger
	DB        *sqlx.DB
	Repo      repository.Repository
	Storage   storage.Storage
	Pipeline  *services.Pipeline
	Documents services.DocumentService

	closers []func() error
}

// New connects the database, runs migrations, and builds the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)

	if err := db.RunMigrations(database); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Storage = store
	a.Repo = repository.NewRepository(database)

	fieldCache, closeCache := newFieldCache(ctx, cfg, logger)
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}

	a.Pipeline = services.NewPipeline(services.PipelineDeps{
		Store:      a.Repo,
		Extractor:  extractor.NewService(store, logger.With("component", "extractor")),
		Inferencer: newInferencer(cfg, logger),
		FieldCache: fieldCache,
		Tuning:     cfg.Tuning,
		Logger:     logger,
	})
	a.Documents = services.NewDocumentService(a.Repo, store, logger.With("component", "documents"))

	logger.Info("Application wired",
		"database", cfg.DatabasePath,
		"inference_enabled", cfg.InferenceEnabled(),
		"redis_cache", cfg.RedisAddr != "")

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newInferencer returns a nil interface, not a typed nil, when inference is disabled.
func newInferencer(cfg *config.Config, logger *utils.Logger) services.Inferencer {
	client := analyzer.New(cfg, logger.With("component", "inference"))
	if client == nil {
		return nil
	}
	return client
}

// newFieldCache prefers Redis and falls back to the in-process cache when it is unreachable.
func newFieldCache(ctx context.Context, cfg *config.Config, logger *utils.Logger) (cache.FieldCache, func() error) {
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisFieldCache(ctx, cfg.RedisAddr, cfg.FieldCacheTTL)
		if err == nil {
			return redisCache, redisCache.Close
		}
		logger.Warn("Redis field cache unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	return cache.NewMemoryFieldCache(cfg.FieldCacheTTL), nil
}
