package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
)

// PostgresStore implements Store using PostgreSQL over database/sql. It
// expects the archived_records table to exist already.
type PostgresStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewPostgresStore wraps an existing database connection.
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging archive database: %w", err)
	}
	return &PostgresStore{db: db, log: logger}, nil
}

// NewPostgresStoreFromURL opens a connection to the given database URL.
func NewPostgresStoreFromURL(databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

const pgUpsertArchiveSQL = `
	INSERT INTO archived_records (` + archiveColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	ON CONFLICT (image_id) DO UPDATE SET
		dataset_source = EXCLUDED.dataset_source,
		patient_id = EXCLUDED.patient_id,
		modality = EXCLUDED.modality,
		laterality = EXCLUDED.laterality,
		view_type = EXCLUDED.view_type,
		image_path = EXCLUDED.image_path,
		diagnosis_raw = EXCLUDED.diagnosis_raw,
		diagnosis_category = EXCLUDED.diagnosis_category,
		severity = EXCLUDED.severity,
		diagnosis_confidence = EXCLUDED.diagnosis_confidence,
		clinical_notes = EXCLUDED.clinical_notes,
		clinical_findings = EXCLUDED.clinical_findings,
		image_quality = EXCLUDED.image_quality,
		patient_age = EXCLUDED.patient_age,
		patient_sex = EXCLUDED.patient_sex,
		patient_ethnicity = EXCLUDED.patient_ethnicity,
		extra_json = EXCLUDED.extra_json,
		quality_flags = EXCLUDED.quality_flags,
		is_valid = EXCLUDED.is_valid,
		validation_notes = EXCLUDED.validation_notes,
		created_at = EXCLUDED.created_at`

// Save stores a record, replacing any existing record with the same image_id.
func (s *PostgresStore) Save(ctx context.Context, record *domain.CanonicalRecord) error {
	if record.ImageID == "" {
		return errors.New("record image_id is empty")
	}

	if _, err := s.db.ExecContext(ctx, pgUpsertArchiveSQL, archiveArgs(record)...); err != nil {
		return fmt.Errorf("saving record %s: %w", record.ImageID, err)
	}
	return nil
}

// SaveAll stores records inside one transaction.
func (s *PostgresStore) SaveAll(ctx context.Context, records []*domain.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if record.ImageID == "" {
			return errors.New("record image_id is empty")
		}
		if _, err := tx.ExecContext(ctx, pgUpsertArchiveSQL, archiveArgs(record)...); err != nil {
			return fmt.Errorf("saving record %s: %w", record.ImageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive transaction: %w", err)
	}

	s.log.WithField("count", len(records)).Info("Records archived")
	return nil
}

// Get retrieves a record by image_id. Returns nil when the record is absent.
func (s *PostgresStore) Get(ctx context.Context, imageID string) (*domain.CanonicalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archived_records WHERE image_id = $1`, imageID)

	record, err := scanArchived(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying record %s: %w", imageID, err)
	}
	return record, nil
}

func (s *PostgresStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*domain.CanonicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var records []*domain.CanonicalRecord
	for rows.Next() {
		record, err := scanArchived(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning archived record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archive: %w", err)
	}
	return records, nil
}

// List returns records ordered by image_id with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.CanonicalRecord, error) {
	return s.queryRecords(ctx,
		`SELECT `+archiveColumns+` FROM archived_records ORDER BY image_id LIMIT $1 OFFSET $2`,
		limit, offset)
}

// ListByDataset returns records from one dataset ordered by image_id.
func (s *PostgresStore) ListByDataset(ctx context.Context, dataset string, limit, offset int) ([]*domain.CanonicalRecord, error) {
	return s.queryRecords(ctx,
		`SELECT `+archiveColumns+` FROM archived_records
		 WHERE dataset_source = $1 ORDER BY image_id LIMIT $2 OFFSET $3`,
		dataset, limit, offset)
}

// Count returns the total number of archived records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting archived records: %w", err)
	}
	return count, nil
}

// Delete removes a record by image_id.
func (s *PostgresStore) Delete(ctx context.Context, imageID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM archived_records WHERE image_id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", imageID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// ExportJSON writes all archived records as an ArchiveExport document.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	records, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("exporting archive: %w", err)
	}

	export := ArchiveExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding archive export: %w", err)
	}
	return nil
}

// ImportJSON reads an ArchiveExport document, inserting records whose image_id
// is not already archived.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	var export ArchiveExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("decoding archive import: %w", err)
	}

	imported, skipped := 0, 0
	for _, record := range export.Records {
		existing, err := s.Get(ctx, record.ImageID)
		if err != nil {
			return imported, skipped, err
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.Save(ctx, record); err != nil {
			return imported, skipped, err
		}
		imported++
	}

	s.log.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Archive imported")
	return imported, skipped, nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
