package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ophtha-harmonizer/internal/domain"
)

// maxExportLimit caps the number of records in a single JSON export.
const maxExportLimit = 1000000

// SQLiteStore implements Store using an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore creates a SQLite-backed archive at the given path, creating
// parent directories and the schema as needed.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db, log: logger}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", path).Info("SQLite archive opened")
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS archived_records (
		image_id             TEXT PRIMARY KEY,
		dataset_source       TEXT NOT NULL,
		patient_id           TEXT NOT NULL DEFAULT '',
		modality             TEXT NOT NULL DEFAULT '',
		laterality           TEXT NOT NULL DEFAULT '',
		view_type            TEXT NOT NULL DEFAULT '',
		image_path           TEXT NOT NULL DEFAULT '',
		diagnosis_raw        TEXT NOT NULL DEFAULT '',
		diagnosis_category   TEXT NOT NULL DEFAULT '',
		severity             TEXT NOT NULL DEFAULT '',
		diagnosis_confidence REAL,
		clinical_notes       TEXT NOT NULL DEFAULT '',
		clinical_findings    TEXT NOT NULL DEFAULT '[]',
		image_quality        TEXT NOT NULL DEFAULT '',
		patient_age          INTEGER,
		patient_sex          TEXT NOT NULL DEFAULT '',
		patient_ethnicity    TEXT NOT NULL DEFAULT '',
		extra_json           TEXT NOT NULL DEFAULT '{}',
		quality_flags        TEXT NOT NULL DEFAULT '[]',
		is_valid             INTEGER NOT NULL DEFAULT 1,
		validation_notes     TEXT NOT NULL DEFAULT '[]',
		created_at           TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_archived_records_dataset ON archived_records (dataset_source);
	CREATE INDEX IF NOT EXISTS idx_archived_records_diagnosis ON archived_records (diagnosis_category);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating archive schema: %w", err)
	}
	return nil
}

func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func encodeMap(values map[string]string) string {
	if len(values) == 0 {
		return "{}"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(data)
}

const archiveColumns = `image_id, dataset_source, patient_id, modality, laterality, view_type,
	image_path, diagnosis_raw, diagnosis_category, severity, diagnosis_confidence,
	clinical_notes, clinical_findings, image_quality, patient_age, patient_sex,
	patient_ethnicity, extra_json, quality_flags, is_valid, validation_notes, created_at`

const upsertArchiveSQL = `
	INSERT INTO archived_records (` + archiveColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (image_id) DO UPDATE SET
		dataset_source = excluded.dataset_source,
		patient_id = excluded.patient_id,
		modality = excluded.modality,
		laterality = excluded.laterality,
		view_type = excluded.view_type,
		image_path = excluded.image_path,
		diagnosis_raw = excluded.diagnosis_raw,
		diagnosis_category = excluded.diagnosis_category,
		severity = excluded.severity,
		diagnosis_confidence = excluded.diagnosis_confidence,
		clinical_notes = excluded.clinical_notes,
		clinical_findings = excluded.clinical_findings,
		image_quality = excluded.image_quality,
		patient_age = excluded.patient_age,
		patient_sex = excluded.patient_sex,
		patient_ethnicity = excluded.patient_ethnicity,
		extra_json = excluded.extra_json,
		quality_flags = excluded.quality_flags,
		is_valid = excluded.is_valid,
		validation_notes = excluded.validation_notes,
		created_at = excluded.created_at`

func archiveArgs(r *domain.CanonicalRecord) []interface{} {
	return []interface{}{
		r.ImageID, r.DatasetSource, r.PatientID, string(r.Modality), string(r.Laterality),
		r.ViewType, r.ImagePath, r.DiagnosisRaw, r.DiagnosisCategory, r.Severity,
		r.DiagnosisConfidence, r.ClinicalNotes, encodeList(r.ClinicalFindings),
		string(r.ImageQuality), r.PatientAge, string(r.PatientSex), string(r.PatientEthnicity),
		encodeMap(r.Extra), encodeList(r.QualityFlags), r.IsValid,
		encodeList(r.ValidationNotes), r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Save stores a record, replacing any existing record with the same image_id.
func (s *SQLiteStore) Save(ctx context.Context, record *domain.CanonicalRecord) error {
	if record.ImageID == "" {
		return errors.New("record image_id is empty")
	}

	if _, err := s.db.ExecContext(ctx, upsertArchiveSQL, archiveArgs(record)...); err != nil {
		return fmt.Errorf("saving record %s: %w", record.ImageID, err)
	}

	s.log.WithFields(logrus.Fields{
		"image_id": record.ImageID,
		"dataset":  record.DatasetSource,
	}).Debug("Record archived")
	return nil
}

// SaveAll stores records inside one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, records []*domain.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertArchiveSQL)
	if err != nil {
		return fmt.Errorf("preparing archive statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if record.ImageID == "" {
			return errors.New("record image_id is empty")
		}
		if _, err := stmt.ExecContext(ctx, archiveArgs(record)...); err != nil {
			return fmt.Errorf("saving record %s: %w", record.ImageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive transaction: %w", err)
	}

	s.log.WithField("count", len(records)).Info("Records archived")
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArchived(row scanner) (*domain.CanonicalRecord, error) {
	var (
		record    domain.CanonicalRecord
		modality  string
		lat       string
		quality   string
		sex       string
		ethnicity string
		findings  string
		extra     string
		flags     string
		notes     string
		createdAt string
	)
	err := row.Scan(
		&record.ImageID, &record.DatasetSource, &record.PatientID, &modality, &lat,
		&record.ViewType, &record.ImagePath, &record.DiagnosisRaw, &record.DiagnosisCategory,
		&record.Severity, &record.DiagnosisConfidence, &record.ClinicalNotes, &findings,
		&quality, &record.PatientAge, &sex, &ethnicity, &extra, &flags,
		&record.IsValid, &notes, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.Modality = domain.Modality(modality)
	record.Laterality = domain.Laterality(lat)
	record.ImageQuality = domain.ImageQuality(quality)
	record.PatientSex = domain.Sex(sex)
	record.PatientEthnicity = domain.Ethnicity(ethnicity)

	if err := json.Unmarshal([]byte(findings), &record.ClinicalFindings); err != nil {
		return nil, fmt.Errorf("decoding clinical findings for %s: %w", record.ImageID, err)
	}
	if err := json.Unmarshal([]byte(extra), &record.Extra); err != nil {
		return nil, fmt.Errorf("decoding extra columns for %s: %w", record.ImageID, err)
	}
	if err := json.Unmarshal([]byte(flags), &record.QualityFlags); err != nil {
		return nil, fmt.Errorf("decoding quality flags for %s: %w", record.ImageID, err)
	}
	if err := json.Unmarshal([]byte(notes), &record.ValidationNotes); err != nil {
		return nil, fmt.Errorf("decoding validation notes for %s: %w", record.ImageID, err)
	}

	record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", record.ImageID, err)
	}
	return &record, nil
}

// Get retrieves a record by image_id. Returns nil when the record is absent.
func (s *SQLiteStore) Get(ctx context.Context, imageID string) (*domain.CanonicalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archived_records WHERE image_id = ?`, imageID)

	record, err := scanArchived(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying record %s: %w", imageID, err)
	}
	return record, nil
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*domain.CanonicalRecord, error) {
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
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.CanonicalRecord, error) {
	return s.queryRecords(ctx,
		`SELECT `+archiveColumns+` FROM archived_records ORDER BY image_id LIMIT ? OFFSET ?`,
		limit, offset)
}

// ListByDataset returns records from one dataset ordered by image_id.
func (s *SQLiteStore) ListByDataset(ctx context.Context, dataset string, limit, offset int) ([]*domain.CanonicalRecord, error) {
	return s.queryRecords(ctx,
		`SELECT `+archiveColumns+` FROM archived_records
		 WHERE dataset_source = ? ORDER BY image_id LIMIT ? OFFSET ?`,
		dataset, limit, offset)
}

// Count returns the total number of archived records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting archived records: %w", err)
	}
	return count, nil
}

// Delete removes a record by image_id.
func (s *SQLiteStore) Delete(ctx context.Context, imageID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM archived_records WHERE image_id = ?`, imageID)
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
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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

	s.log.WithField("count", len(records)).Info("Archive exported")
	return nil
}

// ImportJSON reads an ArchiveExport document, inserting records whose image_id
// is not already archived.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
