// Package repository provides PostgreSQL persistence for harmonized canonical
// records.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
)

// RecordRepository stores canonical records in the harmonized_records table.
type RecordRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewRecordRepository creates a record repository backed by the given pool.
func NewRecordRepository(pool *pgxpool.Pool, logger *logrus.Logger) *RecordRepository {
	return &RecordRepository{pool: pool, log: logger}
}

const recordColumns = `image_id, dataset_source, patient_id, modality, laterality, view_type,
	image_path, diagnosis_raw, diagnosis_category, severity, diagnosis_confidence,
	clinical_notes, clinical_findings, image_quality, patient_age, patient_sex,
	patient_ethnicity, extra_json, quality_flags, is_valid, validation_notes, created_at`

const insertRecordSQL = `
	INSERT INTO harmonized_records (` + recordColumns + `)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
		NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11,
		NULLIF($12, ''), $13, NULLIF($14, ''), $15, NULLIF($16, ''),
		NULLIF($17, ''), $18, $19, $20, $21, $22)`

func recordArgs(r *domain.CanonicalRecord) []interface{} {
	return []interface{}{
		r.ImageID, r.DatasetSource, r.PatientID, string(r.Modality), string(r.Laterality),
		r.ViewType, r.ImagePath, r.DiagnosisRaw, r.DiagnosisCategory, r.Severity,
		r.DiagnosisConfidence, r.ClinicalNotes, r.ClinicalFindings, string(r.ImageQuality),
		r.PatientAge, string(r.PatientSex), string(r.PatientEthnicity), r.Extra,
		r.QualityFlags, r.IsValid, r.ValidationNotes, r.CreatedAt,
	}
}

// Create inserts one canonical record.
func (r *RecordRepository) Create(ctx context.Context, record *domain.CanonicalRecord) error {
	_, err := r.pool.Exec(ctx, insertRecordSQL, recordArgs(record)...)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", record.ImageID, err)
	}

	r.log.WithFields(logrus.Fields{
		"image_id": record.ImageID,
		"dataset":  record.DatasetSource,
	}).Debug("Record created")
	return nil
}

// BatchInsert inserts records inside one transaction, skipping records whose
// image_id already exists. Returns the number of rows actually inserted.
func (r *RecordRepository) BatchInsert(ctx context.Context, records []*domain.CanonicalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning batch insert: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsertSQL = insertRecordSQL + ` ON CONFLICT (image_id) DO NOTHING`

	inserted := 0
	for _, record := range records {
		tag, err := tx.Exec(ctx, upsertSQL, recordArgs(record)...)
		if err != nil {
			return inserted, fmt.Errorf("batch inserting record %s: %w", record.ImageID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing batch insert: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"requested": len(records),
		"inserted":  inserted,
	}).Info("Batch insert completed")
	return inserted, nil
}

func scanRecord(row pgx.Row) (*domain.CanonicalRecord, error) {
	var (
		record     domain.CanonicalRecord
		patientID  *string
		modality   *string
		laterality *string
		viewType   *string
		imagePath  *string
		diagRaw    *string
		diagCat    *string
		severity   *string
		notes      *string
		quality    *string
		sex        *string
		ethnicity  *string
	)
	err := row.Scan(
		&record.ImageID, &record.DatasetSource, &patientID, &modality, &laterality,
		&viewType, &imagePath, &diagRaw, &diagCat, &severity,
		&record.DiagnosisConfidence, &notes, &record.ClinicalFindings, &quality,
		&record.PatientAge, &sex, &ethnicity, &record.Extra, &record.QualityFlags,
		&record.IsValid, &record.ValidationNotes, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	record.PatientID = deref(patientID)
	record.Modality = domain.Modality(deref(modality))
	record.Laterality = domain.Laterality(deref(laterality))
	record.ViewType = deref(viewType)
	record.ImagePath = deref(imagePath)
	record.DiagnosisRaw = deref(diagRaw)
	record.DiagnosisCategory = deref(diagCat)
	record.Severity = deref(severity)
	record.ClinicalNotes = deref(notes)
	record.ImageQuality = domain.ImageQuality(deref(quality))
	record.PatientSex = domain.Sex(deref(sex))
	record.PatientEthnicity = domain.Ethnicity(deref(ethnicity))
	return &record, nil
}

// GetByID fetches one record by image_id.
func (r *RecordRepository) GetByID(ctx context.Context, imageID string) (*domain.CanonicalRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM harmonized_records WHERE image_id = $1`, imageID)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying record %s: %w", imageID, err)
	}
	return record, nil
}

// GetByDataset fetches records for one dataset with pagination, ordered by
// image_id for stable pages.
func (r *RecordRepository) GetByDataset(ctx context.Context, dataset string, limit, offset int) ([]*domain.CanonicalRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM harmonized_records
		 WHERE dataset_source = $1 ORDER BY image_id LIMIT $2 OFFSET $3`,
		dataset, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying records for dataset %s: %w", dataset, err)
	}
	defer rows.Close()

	var records []*domain.CanonicalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Delete removes one record by image_id.
func (r *RecordRepository) Delete(ctx context.Context, imageID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM harmonized_records WHERE image_id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", imageID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
