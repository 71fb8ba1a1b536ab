package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CanonicalColumns is the fixed column order of the harmonized schema. Every
// harmonized table carries exactly these columns in exactly this order.
var CanonicalColumns = []string{
	"image_id",
	"dataset_source",
	"patient_id",
	"modality",
	"laterality",
	"view_type",
	"image_path",
	"diagnosis_raw",
	"diagnosis_category",
	"severity",
	"diagnosis_confidence",
	"clinical_notes",
	"clinical_findings",
	"image_quality",
	"patient_age",
	"patient_sex",
	"patient_ethnicity",
	"extra_json",
	"quality_flags",
	"is_valid",
	"validation_notes",
	"created_at",
}

// CanonicalRecord is a single harmonized observation: one image (or measurement)
// of one eye of one patient, standardized to the canonical vocabulary.
//
// Unset optional fields are the empty string (for vocabulary fields) or nil
// (for pointer fields). A record that fails validation is retained with
// IsValid=false rather than dropped, so no source data is silently lost.
type CanonicalRecord struct {
	ImageID             string            `json:"image_id"`
	DatasetSource       string            `json:"dataset_source"`
	PatientID           string            `json:"patient_id,omitempty"`
	Modality            Modality          `json:"modality,omitempty"`
	Laterality          Laterality        `json:"laterality,omitempty"`
	ViewType            string            `json:"view_type,omitempty"`
	ImagePath           string            `json:"image_path,omitempty"`
	DiagnosisRaw        string            `json:"diagnosis_raw,omitempty"`
	DiagnosisCategory   string            `json:"diagnosis_category,omitempty"`
	Severity            string            `json:"severity,omitempty"`
	DiagnosisConfidence *float64          `json:"diagnosis_confidence,omitempty"`
	ClinicalNotes       string            `json:"clinical_notes,omitempty"`
	ClinicalFindings    []string          `json:"clinical_findings,omitempty"`
	ImageQuality        ImageQuality      `json:"image_quality,omitempty"`
	PatientAge          *int              `json:"patient_age,omitempty"`
	PatientSex          Sex               `json:"patient_sex,omitempty"`
	PatientEthnicity    Ethnicity         `json:"patient_ethnicity,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
	QualityFlags        []string          `json:"quality_flags,omitempty"`
	IsValid             bool              `json:"is_valid"`
	ValidationNotes     []string          `json:"validation_notes,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// AddQualityFlag appends a quality annotation. Flags are append-only and
// deduplicated.
func (r *CanonicalRecord) AddQualityFlag(flag string) {
	for _, f := range r.QualityFlags {
		if f == flag {
			return
		}
	}
	r.QualityFlags = append(r.QualityFlags, flag)
}

// Validate checks record invariants, marking the record invalid and appending
// validation notes and quality flags on failure. The record itself is always
// retained; validation never drops data.
//
// Checked invariants: image_id and dataset_source present, age within 0-150,
// confidence within [0,1], vocabulary fields within their closed sets.
func (r *CanonicalRecord) Validate() []string {
	var problems []string

	if strings.TrimSpace(r.ImageID) == "" {
		problems = append(problems, "missing image_id")
	}
	if strings.TrimSpace(r.DatasetSource) == "" {
		problems = append(problems, "missing dataset_source")
	}
	if r.PatientAge != nil && (*r.PatientAge < 0 || *r.PatientAge > 150) {
		problems = append(problems, fmt.Sprintf("patient_age %d outside 0-150", *r.PatientAge))
	}
	if r.DiagnosisConfidence != nil && (*r.DiagnosisConfidence < 0 || *r.DiagnosisConfidence > 1) {
		problems = append(problems, fmt.Sprintf("diagnosis_confidence %.3f outside [0,1]", *r.DiagnosisConfidence))
	}
	if r.Modality != "" && !r.Modality.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown modality %q", r.Modality))
	}
	if r.Laterality != "" && !r.Laterality.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown laterality %q", r.Laterality))
	}
	if r.PatientSex != "" && !r.PatientSex.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown patient_sex %q", r.PatientSex))
	}
	if r.PatientEthnicity != "" && !r.PatientEthnicity.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown patient_ethnicity %q", r.PatientEthnicity))
	}
	if r.ImageQuality != "" && !r.ImageQuality.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown image_quality %q", r.ImageQuality))
	}

	if len(problems) > 0 {
		r.IsValid = false
		r.ValidationNotes = append(r.ValidationNotes, problems...)
		r.AddQualityFlag("validation_failed")
	} else {
		r.IsValid = true
	}
	return problems
}

// AgeBand returns the demographic age band for the record's patient age:
// infant, toddler, child, adolescent, adult, or elderly. Empty when age is unset.
func (r *CanonicalRecord) AgeBand() string {
	if r.PatientAge == nil {
		return ""
	}
	age := *r.PatientAge
	switch {
	case age < 0:
		return ""
	case age < 2:
		return "infant"
	case age < 5:
		return "toddler"
	case age < 13:
		return "child"
	case age < 18:
		return "adolescent"
	case age < 65:
		return "adult"
	case age <= 150:
		return "elderly"
	default:
		return ""
	}
}

// ToRow flattens the record into a canonical table row. List and map fields are
// JSON-encoded into single cells so the row stays tabular.
func (r *CanonicalRecord) ToRow() Row {
	row := Row{
		"image_id":       StringValue(r.ImageID),
		"dataset_source": StringValue(r.DatasetSource),
		"is_valid":       BoolValue(r.IsValid),
		"created_at":     StringValue(r.CreatedAt.UTC().Format(time.RFC3339)),
	}

	setString := func(col, v string) {
		if v == "" {
			row[col] = Null()
		} else {
			row[col] = StringValue(v)
		}
	}
	setString("patient_id", r.PatientID)
	setString("modality", string(r.Modality))
	setString("laterality", string(r.Laterality))
	setString("view_type", r.ViewType)
	setString("image_path", r.ImagePath)
	setString("diagnosis_raw", r.DiagnosisRaw)
	setString("diagnosis_category", r.DiagnosisCategory)
	setString("severity", r.Severity)
	setString("clinical_notes", r.ClinicalNotes)
	setString("image_quality", string(r.ImageQuality))
	setString("patient_sex", string(r.PatientSex))
	setString("patient_ethnicity", string(r.PatientEthnicity))

	if r.DiagnosisConfidence != nil {
		row["diagnosis_confidence"] = FloatValue(*r.DiagnosisConfidence)
	} else {
		row["diagnosis_confidence"] = Null()
	}
	if r.PatientAge != nil {
		row["patient_age"] = IntValue(int64(*r.PatientAge))
	} else {
		row["patient_age"] = Null()
	}

	setJSON := func(col string, v interface{}, empty bool) {
		if empty {
			row[col] = Null()
			return
		}
		b, err := json.Marshal(v)
		if err != nil {
			row[col] = Null()
			return
		}
		row[col] = StringValue(string(b))
	}
	setJSON("clinical_findings", r.ClinicalFindings, len(r.ClinicalFindings) == 0)
	setJSON("extra_json", r.Extra, len(r.Extra) == 0)
	setJSON("quality_flags", r.QualityFlags, len(r.QualityFlags) == 0)
	setJSON("validation_notes", r.ValidationNotes, len(r.ValidationNotes) == 0)

	return row
}

// RecordFromRow rebuilds a canonical record from a canonical table row, the
// inverse of ToRow. Used when archiving harmonized tables.
func RecordFromRow(row Row) (*CanonicalRecord, error) {
	record := &CanonicalRecord{
		ImageID:           row.Get("image_id").AsString(),
		DatasetSource:     row.Get("dataset_source").AsString(),
		PatientID:         row.Get("patient_id").AsString(),
		Modality:          Modality(row.Get("modality").AsString()),
		Laterality:        Laterality(row.Get("laterality").AsString()),
		ViewType:          row.Get("view_type").AsString(),
		ImagePath:         row.Get("image_path").AsString(),
		DiagnosisRaw:      row.Get("diagnosis_raw").AsString(),
		DiagnosisCategory: row.Get("diagnosis_category").AsString(),
		Severity:          row.Get("severity").AsString(),
		ClinicalNotes:     row.Get("clinical_notes").AsString(),
		ImageQuality:      ImageQuality(row.Get("image_quality").AsString()),
		PatientSex:        Sex(row.Get("patient_sex").AsString()),
		PatientEthnicity:  Ethnicity(row.Get("patient_ethnicity").AsString()),
		IsValid:           row.Get("is_valid").AsString() == "true",
	}

	if v := row.Get("diagnosis_confidence"); !v.IsNull() {
		f, err := v.AsFloat()
		if err != nil {
			return nil, fmt.Errorf("decoding diagnosis_confidence: %w", err)
		}
		record.DiagnosisConfidence = &f
	}
	if v := row.Get("patient_age"); !v.IsNull() {
		n, err := v.AsInt()
		if err != nil {
			return nil, fmt.Errorf("decoding patient_age: %w", err)
		}
		age := int(n)
		record.PatientAge = &age
	}

	getJSON := func(col string, dest interface{}) error {
		v := row.Get(col)
		if v.IsNull() {
			return nil
		}
		return json.Unmarshal([]byte(v.AsString()), dest)
	}
	if err := getJSON("clinical_findings", &record.ClinicalFindings); err != nil {
		return nil, fmt.Errorf("decoding clinical_findings: %w", err)
	}
	if err := getJSON("extra_json", &record.Extra); err != nil {
		return nil, fmt.Errorf("decoding extra_json: %w", err)
	}
	if err := getJSON("quality_flags", &record.QualityFlags); err != nil {
		return nil, fmt.Errorf("decoding quality_flags: %w", err)
	}
	if err := getJSON("validation_notes", &record.ValidationNotes); err != nil {
		return nil, fmt.Errorf("decoding validation_notes: %w", err)
	}

	if v := row.Get("created_at"); !v.IsNull() {
		ts, err := time.Parse(time.RFC3339, v.AsString())
		if err != nil {
			return nil, fmt.Errorf("decoding created_at: %w", err)
		}
		record.CreatedAt = ts
	}
	return record, nil
}
