package domain

import "time"

// Maximum number of row errors and warnings retained on a load report.
// Full counts are always kept; only the detail lists are bounded.
const (
	MaxReportErrors   = 10
	MaxReportWarnings = 10
)

// RowIssue describes a problem encountered while harmonizing one source row.
type RowIssue struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
	RawRow   string `json:"raw_row,omitempty"`
}

// MappingEntry records one detected column mapping with its confidence score.
type MappingEntry struct {
	Field      FieldRole `json:"field"`
	Column     string    `json:"column"`
	Confidence float64   `json:"confidence"`
}

// LoadReport summarizes one dataset load: what was mapped, how confidently,
// and what went wrong. It is the audit artifact consumed by dashboards.
type LoadReport struct {
	Dataset        string         `json:"dataset"`
	RunID          string         `json:"run_id,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	RowsIn         int            `json:"rows_in"`
	RowsOut        int            `json:"rows_out"`
	RowsSkipped    int            `json:"rows_skipped"`
	InvalidRecords int            `json:"invalid_records"`
	Mapping        []MappingEntry `json:"mapping,omitempty"`
	ErrorCount     int            `json:"error_count"`
	WarningCount   int            `json:"warning_count"`
	Errors         []RowIssue     `json:"errors,omitempty"`
	Warnings       []RowIssue     `json:"warnings,omitempty"`
}

// AddError records a row error, retaining detail for the first MaxReportErrors only.
func (r *LoadReport) AddError(issue RowIssue) {
	r.ErrorCount++
	if len(r.Errors) < MaxReportErrors {
		r.Errors = append(r.Errors, issue)
	}
}

// AddWarning records a row warning, retaining detail for the first MaxReportWarnings only.
func (r *LoadReport) AddWarning(issue RowIssue) {
	r.WarningCount++
	if len(r.Warnings) < MaxReportWarnings {
		r.Warnings = append(r.Warnings, issue)
	}
}

// PipelineStatistics aggregates counts across all datasets of one pipeline run.
type PipelineStatistics struct {
	RunID           string                      `json:"run_id"`
	GeneratedAt     time.Time                   `json:"generated_at"`
	TotalRecords    int                         `json:"total_records"`
	ValidRecords    int                         `json:"valid_records"`
	InvalidRecords  int                         `json:"invalid_records"`
	DatasetCount    int                         `json:"dataset_count"`
	ModalityCounts  map[string]int              `json:"modality_counts"`
	DiagnosisCounts map[string]int              `json:"diagnosis_counts"`
	PerDataset      map[string]DatasetBreakdown `json:"per_dataset"`
}

// DatasetBreakdown is the per-dataset slice of pipeline statistics.
type DatasetBreakdown struct {
	Records        int `json:"records"`
	ValidRecords   int `json:"valid_records"`
	InvalidRecords int `json:"invalid_records"`
	Errors         int `json:"errors"`
}
