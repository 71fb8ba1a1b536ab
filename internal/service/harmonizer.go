// Package service implements the harmonization workflow: per-row field
// standardization, whole-table loading with column auto-detection, and the
// multi-dataset pipeline.
package service

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
	"github.com/ophtha-harmonizer/internal/rules"
)

// DefaultMemoCacheSize bounds the diagnosis-normalization memo cache.
const DefaultMemoCacheSize = 4096

type diagnosisMemo struct {
	rule rules.DiagnosisRule
	ok   bool
}

// Harmonizer converts raw source rows into canonical records by applying the
// lexical ruleset field by field. Diagnosis normalization results are memoized
// in an LRU cache since datasets repeat the same label strings across
// thousands of rows.
type Harmonizer struct {
	memo   *lru.Cache[string, diagnosisMemo]
	logger *logrus.Logger
}

// NewHarmonizer creates a row harmonizer with the given memo cache size.
// Sizes below 1 fall back to DefaultMemoCacheSize.
func NewHarmonizer(memoSize int, logger *logrus.Logger) (*Harmonizer, error) {
	if memoSize < 1 {
		memoSize = DefaultMemoCacheSize
	}
	memo, err := lru.New[string, diagnosisMemo](memoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnosis memo cache: %w", err)
	}
	return &Harmonizer{memo: memo, logger: logger}, nil
}

func (h *Harmonizer) normalizeDiagnosis(text string) (rules.DiagnosisRule, bool) {
	key := rules.CleanText(text)
	if cached, ok := h.memo.Get(key); ok {
		return cached.rule, cached.ok
	}
	rule, ok := rules.NormalizeDiagnosis(text)
	h.memo.Add(key, diagnosisMemo{rule: rule, ok: ok})
	return rule, ok
}

// HarmonizeRow converts one raw row into a canonical record using the given
// column mapping. Fields that cannot be standardized are left unset and
// annotated with quality flags; the record is retained either way. An error is
// returned only when the row carries no usable data at all.
func (h *Harmonizer) HarmonizeRow(row domain.Row, mapping domain.ColumnMapping, dataset string, rowIndex int) (*domain.CanonicalRecord, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("row %d: empty row", rowIndex)
	}

	record := &domain.CanonicalRecord{
		DatasetSource: dataset,
		CreatedAt:     time.Now().UTC(),
	}

	cell := func(field domain.FieldRole) domain.Value {
		col, ok := mapping[field]
		if !ok {
			return domain.Null()
		}
		return row.Get(col)
	}

	// Identity. Rows without an identifier get a deterministic fallback of
	// dataset name plus row index.
	if v := cell(domain.FieldImageID); !v.IsNull() {
		record.ImageID = strings.TrimSpace(v.AsString())
	}
	if record.ImageID == "" {
		record.ImageID = fmt.Sprintf("%s_%d", dataset, rowIndex)
		record.AddQualityFlag("generated_image_id")
	}
	if v := cell(domain.FieldPatientID); !v.IsNull() {
		record.PatientID = strings.TrimSpace(v.AsString())
	}
	if v := cell(domain.FieldImagePath); !v.IsNull() {
		record.ImagePath = strings.TrimSpace(v.AsString())
	}
	if v := cell(domain.FieldViewType); !v.IsNull() {
		record.ViewType = strings.TrimSpace(v.AsString())
	}
	if v := cell(domain.FieldClinicalNotes); !v.IsNull() {
		record.ClinicalNotes = strings.TrimSpace(v.AsString())
	}

	h.harmonizeDiagnosis(record, cell)
	h.harmonizeLaterality(record, cell)
	h.harmonizeModality(record, cell, dataset)
	h.harmonizeDemographics(record, cell)
	h.harmonizeQuality(record, cell)

	// Findings come from whatever text is available.
	findingsText := record.DiagnosisRaw + " " + record.ClinicalNotes
	record.ClinicalFindings = rules.FindClinicalFindings(findingsText)

	// Unmapped non-null columns survive in extra_json.
	mapped := mapping.MappedColumns()
	for col, v := range row {
		if mapped[col] || v.IsNull() {
			continue
		}
		if record.Extra == nil {
			record.Extra = make(map[string]string)
		}
		record.Extra[col] = v.AsString()
	}

	record.Validate()
	return record, nil
}

func (h *Harmonizer) harmonizeDiagnosis(record *domain.CanonicalRecord, cell func(domain.FieldRole) domain.Value) {
	v := cell(domain.FieldDiagnosis)
	if v.IsNull() {
		return
	}
	record.DiagnosisRaw = strings.TrimSpace(v.AsString())

	rule, ok := h.normalizeDiagnosis(record.DiagnosisRaw)
	if !ok {
		record.AddQualityFlag("unmapped_diagnosis")
		return
	}
	record.DiagnosisCategory = rule.Category
	record.Severity = rule.Severity
	if record.Severity == "" {
		record.Severity = rules.InferSeverity(record.DiagnosisRaw, rule.Category)
	}

	// An explicit severity column wins over severity inferred from the
	// diagnosis text. It is only consulted when a diagnosis was mapped,
	// so severity never exists without a category.
	sv := cell(domain.FieldSeverity)
	if sv.IsNull() {
		return
	}
	if explicit := resolveExplicitSeverity(sv, rule.Category); explicit != "" {
		record.Severity = explicit
	}
}

// resolveExplicitSeverity interprets an explicit severity cell against the
// condition's grading scale: numeric grades (0-4) look up the scale directly,
// text goes through tier-keyword inference.
func resolveExplicitSeverity(v domain.Value, category string) string {
	if n, err := v.AsInt(); err == nil {
		if scale := rules.GradingScale(category); scale != nil {
			return scale[int(n)]
		}
		return ""
	}
	return rules.InferSeverity(v.AsString(), category)
}

// Laterality comes only from the mapped column. Filenames and synthesized
// ids are never scanned: short triggers like "os" would misfire on dataset
// names ("cross", "odir") and poison every unmapped row.
func (h *Harmonizer) harmonizeLaterality(record *domain.CanonicalRecord, cell func(domain.FieldRole) domain.Value) {
	v := cell(domain.FieldLaterality)
	if v.IsNull() {
		return
	}
	if lat, ok := rules.InferLaterality(v.AsString()); ok {
		record.Laterality = lat
		return
	}
	record.AddQualityFlag("unmapped_laterality")
}

// Modality is inferred from the dataset name combined with the mapped
// modality text, so datasets like "messidor" resolve to Fundus even without
// a modality column.
func (h *Harmonizer) harmonizeModality(record *domain.CanonicalRecord, cell func(domain.FieldRole) domain.Value, dataset string) {
	text := ""
	if v := cell(domain.FieldModality); !v.IsNull() {
		text = v.AsString()
	}
	if m, ok := rules.InferModality(dataset, text); ok {
		record.Modality = m
		return
	}
	if text != "" {
		record.AddQualityFlag("unmapped_modality")
	}
}

func (h *Harmonizer) harmonizeDemographics(record *domain.CanonicalRecord, cell func(domain.FieldRole) domain.Value) {
	if v := cell(domain.FieldPatientAge); !v.IsNull() {
		if age, ok := rules.StandardizeAge(v); ok {
			record.PatientAge = &age
		} else {
			record.AddQualityFlag("invalid_age")
		}
	}
	if v := cell(domain.FieldPatientSex); !v.IsNull() {
		if sex, ok := rules.StandardizeSex(v.AsString()); ok {
			record.PatientSex = sex
		} else {
			record.AddQualityFlag("unmapped_sex")
		}
	}
	if v := cell(domain.FieldPatientEthnicity); !v.IsNull() {
		if eth, ok := rules.StandardizeEthnicity(v.AsString()); ok {
			record.PatientEthnicity = eth
		} else {
			record.AddQualityFlag("unmapped_ethnicity")
		}
	}
}

func (h *Harmonizer) harmonizeQuality(record *domain.CanonicalRecord, cell func(domain.FieldRole) domain.Value) {
	qualityText := ""
	if v := cell(domain.FieldImageQuality); !v.IsNull() {
		qualityText = v.AsString()
	}
	artifacts := rules.DetectArtifacts(qualityText + " " + record.ClinicalNotes)
	for _, a := range artifacts {
		record.AddQualityFlag("artifact_" + a)
	}
	if q, ok := rules.AssessImageQuality(qualityText, len(artifacts) > 0); ok {
		record.ImageQuality = q
	}
}
