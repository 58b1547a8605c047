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

	"github.com/timmy/loginscraper/internal/agent"
	"github.com/timmy/loginscraper/internal/api"
	"github.com/timmy/loginscraper/internal/config"
	"github.com/timmy/loginscraper/internal/logger"
	"github.com/timmy/loginscraper/internal/repository"
	"github.com/timmy/loginscraper/internal/service"
	"github.com/timmy/loginscraper/internal/storage"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH points at an optional YAML file for deployments.
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	registry := repository.NewJobRegistry()
	hosted := agent.NewFromConfig(cfg)

	pool := service.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize)
	pool.Start(context.Background())

	deps := api.RouterDeps{Logger: appLogger}

	var archiver service.Archiver
	if cfg.Archive.Enabled {
		archive, err := setupArchive(&cfg.Archive, appLogger)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize job archive")
		}
		archiver = archive
		deps.Archive = archive
	}

	scrapeService := service.NewScrapeService(registry, hosted, pool, archiver, appLogger, &service.ScrapeConfig{
		JobTimeout: cfg.Agent.JobTimeout,
	})
	deps.Jobs = scrapeService

	router := api.SetupRouter(&cfg.Server, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":    cfg.Server.Port,
			"mode":    cfg.Server.Mode,
			"workers": cfg.Workers.Count,
			"tracing": cfg.Tracing.Enabled(),
			"archive": cfg.Archive.Enabled,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	// Running jobs are cancelled and end failed.
	if err := pool.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Workers did not stop in time")
	}

	appLogger.Info("Server exited")
}

// setupArchive connects the archive database and object storage.
func setupArchive(cfg *config.ArchiveConfig, log *logger.Logger) (*service.ArchiveService, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	var store storage.ObjectStorage
	if cfg.Storage.Bucket != "" {
		s3store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		if ensurer, ok := s3store.(interface{ EnsureBucket(context.Context) error }); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := ensurer.EnsureBucket(ctx); err != nil {
				return nil, fmt.Errorf("ensure storage bucket: %w", err)
			}
		}
		store = s3store
	} else {
		log.Warn("Archive storage not configured, HTML bodies will not be archived")
	}

	return service.NewArchiveService(repository.NewArchiveRepository(db), store, cfg.Storage.Prefix, log), nil
}
