package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
	"github.com/ophtha-harmonizer/internal/rules"
)

// Loader harmonizes whole tables: it auto-detects column mappings when none is
// supplied, runs every row through the harmonizer, and aggregates the outcome
// into a load report. Row failures skip the row and are recorded on the
// report; they never abort the load.
type Loader struct {
	harmonizer *Harmonizer
	logger     *logrus.Logger
}

// NewLoader creates a dataset loader around the given row harmonizer.
func NewLoader(harmonizer *Harmonizer, logger *logrus.Logger) *Loader {
	return &Loader{harmonizer: harmonizer, logger: logger}
}

// DetectMapping auto-detects the column mapping for a raw column list.
func (l *Loader) DetectMapping(columns []string) (domain.ColumnMapping, []domain.MappingEntry) {
	return rules.DetectMapping(columns)
}

// LoadAndHarmonize converts a raw table into the canonical schema. A nil
// mapping triggers auto-detection from the table's columns. The returned table
// always carries the full canonical column set in canonical order; the report
// records the mapping, confidences, and the first few row errors and warnings.
func (l *Loader) LoadAndHarmonize(ctx context.Context, dataset string, table *domain.Table, mapping domain.ColumnMapping) (*domain.Table, *domain.LoadReport, error) {
	report := &domain.LoadReport{
		Dataset:   dataset,
		StartedAt: time.Now().UTC(),
	}
	out := domain.NewTable(domain.CanonicalColumns...)

	if table.IsEmpty() {
		l.logger.WithField("dataset", dataset).Warn("Dataset table is empty, nothing to harmonize")
		report.FinishedAt = time.Now().UTC()
		return out, report, nil
	}
	report.RowsIn = table.Len()

	var entries []domain.MappingEntry
	if mapping == nil {
		mapping, entries = l.DetectMapping(table.Columns)
		if len(mapping) == 0 {
			l.logger.WithFields(logrus.Fields{
				"dataset": dataset,
				"columns": table.Columns,
			}).Warn("No column mapping detected")
		}
	} else {
		for field, col := range mapping {
			entries = append(entries, domain.MappingEntry{
				Field:      field,
				Column:     col,
				Confidence: rules.MappingConfidence(field, col),
			})
		}
	}
	report.Mapping = entries

	for i, row := range table.Rows {
		select {
		case <-ctx.Done():
			report.FinishedAt = time.Now().UTC()
			return out, report, ctx.Err()
		default:
		}

		record, err := l.harmonizer.HarmonizeRow(row, mapping, dataset, i)
		if err != nil {
			report.RowsSkipped++
			report.AddError(domain.RowIssue{
				RowIndex: i,
				Message:  err.Error(),
				RawRow:   rawRowString(row),
			})
			l.logger.WithFields(logrus.Fields{
				"dataset":   dataset,
				"row_index": i,
				"error":     err.Error(),
			}).Warn("Skipping row that failed harmonization")
			continue
		}

		if !record.IsValid {
			report.InvalidRecords++
			report.AddWarning(domain.RowIssue{
				RowIndex: i,
				Message:  "record failed validation: " + joinNotes(record.ValidationNotes),
			})
		}
		for _, flag := range record.QualityFlags {
			if flag == "unmapped_diagnosis" || flag == "invalid_age" {
				report.AddWarning(domain.RowIssue{RowIndex: i, Message: flag})
			}
		}
		out.Append(record.ToRow())
	}

	report.RowsOut = out.Len()
	report.FinishedAt = time.Now().UTC()
	l.logger.WithFields(logrus.Fields{
		"dataset":  dataset,
		"rows_in":  report.RowsIn,
		"rows_out": report.RowsOut,
		"skipped":  report.RowsSkipped,
		"invalid":  report.InvalidRecords,
	}).Info("Dataset harmonized")
	return out, report, nil
}

func rawRowString(row domain.Row) string {
	flat := make(map[string]interface{}, len(row))
	for col, v := range row {
		flat[col] = v.Interface()
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return ""
	}
	return string(b)
}

func joinNotes(notes []string) string {
	out := ""
	for i, n := range notes {
		if i > 0 {
			out += "; "
		}
		out += n
	}
	return out
}
