package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ophtha-harmonizer/internal/api"
	"github.com/ophtha-harmonizer/internal/config"
	"github.com/ophtha-harmonizer/internal/database"
	"github.com/ophtha-harmonizer/internal/domain"
	"github.com/ophtha-harmonizer/internal/repository"
	"github.com/ophtha-harmonizer/internal/reportcache"
	"github.com/ophtha-harmonizer/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	harmonizer, err := service.NewHarmonizer(cfg.Pipeline.MemoCacheSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create harmonizer")
	}
	loader := service.NewLoader(harmonizer, logger)

	pipeline := service.NewPipeline(loader, cfg.Pipeline.FailureLimit, cfg.Pipeline.BreakerCooldown, logger)
	for _, ds := range cfg.Pipeline.Datasets {
		pipeline.Register(ds.Name, service.FileDataset(ds.Path), nil, ds.Enabled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher domain.ReportPublisher
	if cfg.Cache.Enabled {
		cachePublisher, err := reportcache.NewPublisher(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to report cache")
		}
		defer cachePublisher.Close()
		publisher = cachePublisher
	}

	var records domain.RecordRepository
	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to PostgreSQL")
		}
		defer db.Close()

		migrator, err := database.NewMigrator(configManager.GetDatabaseConnectionString(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create schema migrator")
		}
		if err := migrator.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to apply schema migrations")
		}
		migrator.Close()

		records = repository.NewRecordRepository(db.Pool, logger)
	}

	server := api.NewServer(configManager, loader, pipeline, publisher, records, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithField("port", cfg.Server.Port).Info("Starting harmonization server")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
