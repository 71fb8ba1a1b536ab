// Command harmonizer runs the harmonization pipeline once: it reads the
// configured datasets, harmonizes and merges them, archives the canonical
// records, and prints run statistics as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/archive"
	"github.com/ophtha-harmonizer/internal/config"
	"github.com/ophtha-harmonizer/internal/domain"
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
	if len(pipeline.Datasets()) == 0 {
		logger.Fatal("No datasets configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Interrupt received, cancelling pipeline run")
		cancel()
	}()

	tables, reports, err := pipeline.HarmonizeAll(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Pipeline run failed")
	}

	merged := pipeline.MergeAll(tables)
	stats := pipeline.Statistics(tables, reports)

	if err := archiveRecords(ctx, cfg, configManager, merged, logger); err != nil {
		logger.WithError(err).Fatal("Failed to archive records")
	}

	if cfg.Cache.Enabled {
		publishRun(ctx, cfg, reports, stats, logger)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(stats); err != nil {
		logger.WithError(err).Fatal("Failed to print statistics")
	}
}

func openStore(cfg *domain.Config, configManager domain.ConfigManager, logger *logrus.Logger) (archive.Store, error) {
	if cfg.Archive.Backend == "postgres" {
		return archive.NewPostgresStoreFromURL(configManager.GetDatabaseConnectionString(), logger)
	}
	return archive.NewSQLiteStore(cfg.Archive.Path, logger)
}

func archiveRecords(ctx context.Context, cfg *domain.Config, configManager domain.ConfigManager, merged *domain.Table, logger *logrus.Logger) error {
	store, err := openStore(cfg, configManager, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	records := make([]*domain.CanonicalRecord, 0, merged.Len())
	for i, row := range merged.Rows {
		record, err := domain.RecordFromRow(row)
		if err != nil {
			return fmt.Errorf("decoding merged row %d: %w", i, err)
		}
		records = append(records, record)
	}

	if err := store.SaveAll(ctx, records); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"backend": cfg.Archive.Backend,
		"records": len(records),
	}).Info("Harmonized records archived")
	return nil
}

func publishRun(ctx context.Context, cfg *domain.Config, reports map[string]*domain.LoadReport, stats *domain.PipelineStatistics, logger *logrus.Logger) {
	publisher, err := reportcache.NewPublisher(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Warn("Report cache unavailable, skipping publication")
		return
	}
	defer publisher.Close()

	for _, report := range reports {
		if err := publisher.PublishReport(ctx, report); err != nil {
			logger.WithError(err).Warn("Failed to publish load report")
		}
	}
	if err := publisher.PublishStatistics(ctx, stats); err != nil {
		logger.WithError(err).Warn("Failed to publish pipeline statistics")
	}
}
