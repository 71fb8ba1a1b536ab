package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ophtha-harmonizer/internal/domain"
)

// registration is one dataset wired into the pipeline: its source function,
// optional explicit mapping, enabled flag, and circuit breaker.
type registration struct {
	name    string
	fn      domain.DatasetFunc
	mapping domain.ColumnMapping
	enabled bool
	breaker *gobreaker.CircuitBreaker
}

// HarmonizationPipeline runs all registered datasets through the loader and
// merges the results. Registration order is preserved end to end: datasets are
// processed, merged, and reported in the order they were registered.
//
// Each dataset's source function runs behind its own circuit breaker, so a
// source that fails repeatedly is skipped quickly on later runs while the
// other datasets keep processing.
type HarmonizationPipeline struct {
	loader        *Loader
	registrations []*registration
	byName        map[string]*registration
	failureLimit  uint32
	cooldown      time.Duration
	logger        *logrus.Logger
}

// NewPipeline creates a harmonization pipeline. failureLimit is the number of
// consecutive dataset-source failures that opens the breaker; cooldown is how
// long the breaker stays open before a trial request.
func NewPipeline(loader *Loader, failureLimit int, cooldown time.Duration, logger *logrus.Logger) *HarmonizationPipeline {
	if failureLimit < 1 {
		failureLimit = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &HarmonizationPipeline{
		loader:       loader,
		byName:       make(map[string]*registration),
		failureLimit: uint32(failureLimit),
		cooldown:     cooldown,
		logger:       logger,
	}
}

// Register wires a dataset into the pipeline. A nil mapping means the loader
// auto-detects columns. Registering the same name twice replaces the previous
// registration but keeps its position.
func (p *HarmonizationPipeline) Register(name string, fn domain.DatasetFunc, mapping domain.ColumnMapping, enabled bool) {
	limit := p.failureLimit
	reg := &registration{
		name:    name,
		fn:      fn,
		mapping: mapping,
		enabled: enabled,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "dataset:" + name,
			Timeout: p.cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= limit
			},
		}),
	}

	if existing, ok := p.byName[name]; ok {
		*existing = *reg
		return
	}
	p.byName[name] = reg
	p.registrations = append(p.registrations, reg)
}

// Datasets returns the registered dataset names in registration order.
func (p *HarmonizationPipeline) Datasets() []string {
	names := make([]string, len(p.registrations))
	for i, reg := range p.registrations {
		names[i] = reg.name
	}
	return names
}

// fetch runs the dataset source function behind its breaker, converting panics
// into errors so one misbehaving source cannot take down the run.
func (p *HarmonizationPipeline) fetch(ctx context.Context, reg *registration) (*domain.Table, error) {
	result, err := reg.breaker.Execute(func() (out interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("dataset source panicked: %v", r)
			}
		}()
		return reg.fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	table, _ := result.(*domain.Table)
	if table == nil {
		return nil, fmt.Errorf("dataset source returned no table")
	}
	return table, nil
}

// HarmonizeAll processes every enabled dataset and returns the harmonized
// tables and load reports keyed by dataset name. Dataset-level failures are
// recorded on that dataset's report and do not block the other datasets; the
// returned error is non-nil only when the context is cancelled.
func (p *HarmonizationPipeline) HarmonizeAll(ctx context.Context) (map[string]*domain.Table, map[string]*domain.LoadReport, error) {
	runID := uuid.New().String()
	tables := make(map[string]*domain.Table)
	reports := make(map[string]*domain.LoadReport)

	p.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"datasets": len(p.registrations),
	}).Info("Starting harmonization run")

	for _, reg := range p.registrations {
		if err := ctx.Err(); err != nil {
			return tables, reports, fmt.Errorf("%w: %v", domain.ErrPipelineCancelled, err)
		}
		if !reg.enabled {
			p.logger.WithField("dataset", reg.name).Debug("Skipping disabled dataset")
			continue
		}

		log := p.logger.WithFields(logrus.Fields{"run_id": runID, "dataset": reg.name})

		raw, err := p.fetch(ctx, reg)
		if err != nil {
			log.WithError(err).Error("Dataset source failed")
			report := &domain.LoadReport{
				Dataset:    reg.name,
				RunID:      runID,
				StartedAt:  time.Now().UTC(),
				FinishedAt: time.Now().UTC(),
			}
			report.AddError(domain.RowIssue{Message: "dataset source failed: " + err.Error()})
			reports[reg.name] = report
			continue
		}

		table, report, err := p.loader.LoadAndHarmonize(ctx, reg.name, raw, reg.mapping)
		report.RunID = runID
		reports[reg.name] = report
		if err != nil {
			log.WithError(err).Error("Harmonization aborted")
			return tables, reports, fmt.Errorf("%w: %v", domain.ErrPipelineCancelled, err)
		}
		tables[reg.name] = table
	}

	p.logger.WithField("run_id", runID).Info("Harmonization run finished")
	return tables, reports, nil
}

// MergeAll concatenates harmonized tables into one canonical table, preserving
// registration order across datasets and row order within each dataset.
func (p *HarmonizationPipeline) MergeAll(tables map[string]*domain.Table) *domain.Table {
	merged := domain.NewTable(domain.CanonicalColumns...)
	for _, reg := range p.registrations {
		table, ok := tables[reg.name]
		if !ok {
			continue
		}
		merged.Rows = append(merged.Rows, table.Rows...)
	}
	return merged
}

// Statistics aggregates record counts, modality and diagnosis cardinality, and
// a per-dataset breakdown for one run's output.
func (p *HarmonizationPipeline) Statistics(tables map[string]*domain.Table, reports map[string]*domain.LoadReport) *domain.PipelineStatistics {
	stats := &domain.PipelineStatistics{
		GeneratedAt:     time.Now().UTC(),
		ModalityCounts:  make(map[string]int),
		DiagnosisCounts: make(map[string]int),
		PerDataset:      make(map[string]domain.DatasetBreakdown),
	}

	for _, reg := range p.registrations {
		report, ok := reports[reg.name]
		if !ok {
			continue
		}
		if stats.RunID == "" {
			stats.RunID = report.RunID
		}

		breakdown := domain.DatasetBreakdown{Errors: report.ErrorCount}
		if table, ok := tables[reg.name]; ok {
			stats.DatasetCount++
			for _, row := range table.Rows {
				stats.TotalRecords++
				breakdown.Records++
				if m := row.Get("modality").AsString(); m != "" {
					stats.ModalityCounts[m]++
				}
				if d := row.Get("diagnosis_category").AsString(); d != "" {
					stats.DiagnosisCounts[d]++
				}
				if row.Get("is_valid").AsString() == "true" {
					stats.ValidRecords++
					breakdown.ValidRecords++
				} else {
					stats.InvalidRecords++
					breakdown.InvalidRecords++
				}
			}
		}
		stats.PerDataset[reg.name] = breakdown
	}
	return stats
}
