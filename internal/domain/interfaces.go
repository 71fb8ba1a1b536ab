package domain

import (
	"context"
)

// RowHarmonizer converts one raw source row into a canonical record.
type RowHarmonizer interface {
	HarmonizeRow(row Row, mapping ColumnMapping, dataset string, rowIndex int) (*CanonicalRecord, error)
}

// DatasetLoader loads a raw table and harmonizes it end to end.
type DatasetLoader interface {
	LoadAndHarmonize(ctx context.Context, dataset string, table *Table, mapping ColumnMapping) (*Table, *LoadReport, error)
	DetectMapping(columns []string) (ColumnMapping, []MappingEntry)
}

// DatasetFunc produces the raw table for a registered dataset.
type DatasetFunc func(ctx context.Context) (*Table, error)

// Pipeline orchestrates harmonization across all registered datasets.
type Pipeline interface {
	Register(name string, fn DatasetFunc, mapping ColumnMapping, enabled bool)
	HarmonizeAll(ctx context.Context) (map[string]*Table, map[string]*LoadReport, error)
	MergeAll(tables map[string]*Table) *Table
	Statistics(tables map[string]*Table, reports map[string]*LoadReport) *PipelineStatistics
	Datasets() []string
}

// RecordRepository persists canonical records in PostgreSQL.
type RecordRepository interface {
	Create(ctx context.Context, record *CanonicalRecord) error
	BatchInsert(ctx context.Context, records []*CanonicalRecord) (int, error)
	GetByID(ctx context.Context, imageID string) (*CanonicalRecord, error)
	GetByDataset(ctx context.Context, dataset string, limit, offset int) ([]*CanonicalRecord, error)
	Delete(ctx context.Context, imageID string) error
}

// ReportPublisher publishes load reports and pipeline statistics for
// dashboard consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *LoadReport) error
	GetReport(ctx context.Context, dataset string) (*LoadReport, error)
	PublishStatistics(ctx context.Context, stats *PipelineStatistics) error
	GetStatistics(ctx context.Context) (*PipelineStatistics, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetPipelineConfig() *PipelineConfig
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
