// Package app wires configuration, storage and services together for the
// API server and the command line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/NaguKun/Analyseur-de-CV/internal/config"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB

	Candidates repositories.CandidateRepository
	Documents  repositories.DocumentRepository
	Store      repositories.SearchRepository

	Extractor   services.ExtractorService
	Index       services.VectorIndex
	Ingestion   services.IngestionService
	Batch       services.BatchProcessor
	Search      services.SearchService
	Profiles    services.CandidateService

	cache *services.EmbeddingCache
}

// New connects to every configured backend. The vector index and the
// embedding cache are only set up when configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Candidates: repositories.NewCandidateRepository(db),
		Documents:  repositories.NewDocumentRepository(db),
		Store:      repositories.NewSearchRepository(db),
	}
	logger.Info("repositories initialized")

	llm, err := services.NewLLMService(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.LLM.Provider, err)
	}
	if cfg.Cache.Dir != "" {
		cache, err := services.OpenEmbeddingCache(cfg.Cache.Dir, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, err
		}
		a.cache = cache
		llm = services.WithEmbeddingCache(llm, cache)
		logger.Info("embedding cache enabled", "dir", cfg.Cache.Dir, "ttl", cfg.Cache.TTL)
	}
	logger.Info("llm provider initialized", "provider", cfg.LLM.Provider, "embedding_model", llm.EmbeddingModel())

	storage, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Qdrant.Enabled() {
		index, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.LLM.EmbeddingDimension, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := index.InitCollection(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Index = index
		logger.Info("qdrant initialized", "collection", cfg.Qdrant.Collection)
	}

	a.Extractor = services.NewExtractorService(llm, cfg.LLM.EmbeddingDimension,
		services.WithExtractorLogger(logger),
		services.WithRetries(cfg.LLM.MaxRetries, cfg.LLM.RetryInitialDelay),
	)

	ingestOpts := []services.IngestionOption{
		services.WithIngestionLogger(logger),
		services.WithDocumentLog(a.Documents),
	}
	if a.Index != nil {
		ingestOpts = append(ingestOpts, services.WithVectorIndex(a.Index))
	}
	a.Ingestion = services.NewIngestionService(
		a.Candidates,
		storage,
		services.NewPDFParserService(logger),
		a.Extractor,
		cfg.Storage.MaxFileSize,
		ingestOpts...,
	)
	a.Batch = services.NewBatchProcessor(a.Ingestion, cfg.Worker.Concurrency, logger)

	a.Search, err = services.NewSearchService(a.Store, a.Candidates, a.Extractor,
		services.WithSearchLogger(logger),
		services.WithThreshold(cfg.Search.SimilarityThreshold),
		services.WithCaseFolding(cfg.Search.CaseFolding),
		services.WithPoolSize(cfg.Search.PoolSize),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Profiles = services.NewCandidateService(a.Candidates, a.Extractor, a.Index, logger)
	logger.Info("services initialized")

	return a, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (services.StorageService, error) {
	switch cfg.Backend {
	case config.StorageDrive:
		return services.NewDriveStorageService(ctx, cfg.DriveCredentialsFile, cfg.DriveFolderID)
	default:
		return services.NewStorageService(cfg.UploadPath)
	}
}

// Close releases the search pool, the cache and the database connection.
func (a *App) Close() {
	if a.Search != nil {
		a.Search.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Logger.Warn("failed to close embedding cache", "err", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
