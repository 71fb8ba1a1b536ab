// Package archive provides local persistence for harmonized record sets: an
// embedded SQLite store for single-machine runs and a database/sql Postgres
// store for shared archives, plus a JSON export/import round-trip.
package archive

import (
	"context"
	"io"
	"time"

	"github.com/ophtha-harmonizer/internal/domain"
)

// Store defines the interface for harmonized record archives.
type Store interface {
	// Save stores a record. An existing record with the same image_id is updated.
	Save(ctx context.Context, record *domain.CanonicalRecord) error

	// SaveAll stores records in bulk, updating existing image_ids.
	SaveAll(ctx context.Context, records []*domain.CanonicalRecord) error

	// Get retrieves a record by image_id. Returns nil when absent.
	Get(ctx context.Context, imageID string) (*domain.CanonicalRecord, error)

	// List returns records ordered by image_id with pagination.
	List(ctx context.Context, limit, offset int) ([]*domain.CanonicalRecord, error)

	// ListByDataset returns records from one dataset ordered by image_id.
	ListByDataset(ctx context.Context, dataset string, limit, offset int) ([]*domain.CanonicalRecord, error)

	// Count returns the total number of archived records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by image_id.
	Delete(ctx context.Context, imageID string) error

	// ExportJSON exports all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports records from a JSON reader, skipping image_ids that
	// already exist. Returns the number of imported and skipped records.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// ArchiveExport represents the JSON export format.
type ArchiveExport struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Count      int                       `json:"count"`
	Records    []*domain.CanonicalRecord `json:"records"`
}

// exportVersion is written into every JSON export.
const exportVersion = "1.0"
