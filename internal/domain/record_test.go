package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCanonicalRecordValidate(t *testing.T) {
	tests := []struct {
		name         string
		record       CanonicalRecord
		wantValid    bool
		wantProblems int
	}{
		{
			name: "complete valid record",
			record: CanonicalRecord{
				ImageID:       "aptos_12",
				DatasetSource: "aptos",
				Modality:      ModalityFundus,
				Laterality:    LateralityOD,
				PatientAge:    intPtr(55),
			},
			wantValid: true,
		},
		{
			name:         "missing image_id",
			record:       CanonicalRecord{DatasetSource: "aptos"},
			wantValid:    false,
			wantProblems: 1,
		},
		{
			name: "age above range",
			record: CanonicalRecord{
				ImageID: "x", DatasetSource: "d", PatientAge: intPtr(200),
			},
			wantValid:    false,
			wantProblems: 1,
		},
		{
			name: "confidence above one",
			record: CanonicalRecord{
				ImageID: "x", DatasetSource: "d", DiagnosisConfidence: floatPtr(1.2),
			},
			wantValid:    false,
			wantProblems: 1,
		},
		{
			name: "vocabulary violation",
			record: CanonicalRecord{
				ImageID: "x", DatasetSource: "d", Laterality: "LEFTISH",
			},
			wantValid:    false,
			wantProblems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := tt.record.Validate()
			assert.Equal(t, tt.wantValid, tt.record.IsValid)
			assert.Len(t, problems, tt.wantProblems)
			if !tt.wantValid {
				assert.Contains(t, tt.record.QualityFlags, "validation_failed")
				assert.NotEmpty(t, tt.record.ValidationNotes)
			}
		})
	}
}

func TestValidateRetainsRecord(t *testing.T) {
	rec := CanonicalRecord{DatasetSource: "messidor", DiagnosisRaw: "moderate npdr"}
	rec.Validate()

	// invalid records keep their data
	assert.False(t, rec.IsValid)
	assert.Equal(t, "moderate npdr", rec.DiagnosisRaw)
}

func TestAddQualityFlagDeduplicates(t *testing.T) {
	rec := CanonicalRecord{}
	rec.AddQualityFlag("low_confidence_mapping")
	rec.AddQualityFlag("low_confidence_mapping")
	assert.Equal(t, []string{"low_confidence_mapping"}, rec.QualityFlags)
}

func TestAgeBand(t *testing.T) {
	tests := []struct {
		age  *int
		want string
	}{
		{nil, ""},
		{intPtr(1), "infant"},
		{intPtr(3), "toddler"},
		{intPtr(10), "child"},
		{intPtr(15), "adolescent"},
		{intPtr(40), "adult"},
		{intPtr(70), "elderly"},
		{intPtr(150), "elderly"},
	}
	for _, tt := range tests {
		rec := CanonicalRecord{PatientAge: tt.age}
		assert.Equal(t, tt.want, rec.AgeBand())
	}
}

func TestToRowCoversCanonicalColumns(t *testing.T) {
	rec := CanonicalRecord{
		ImageID:          "ds_0",
		DatasetSource:    "ds",
		Modality:         ModalityOCT,
		ClinicalFindings: []string{"hemorrhages"},
		Extra:            map[string]string{"camera": "topcon"},
		IsValid:          true,
		CreatedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	row := rec.ToRow()

	for _, col := range CanonicalColumns {
		_, ok := row[col]
		assert.True(t, ok, "column %s missing from row", col)
	}
	assert.Equal(t, "ds_0", row["image_id"].AsString())
	assert.Equal(t, "OCT", row["modality"].AsString())
	assert.True(t, row["laterality"].IsNull())
	assert.Contains(t, row["clinical_findings"].AsString(), "hemorrhages")
	assert.Contains(t, row["extra_json"].AsString(), "topcon")
	assert.Equal(t, "2026-03-01T12:00:00Z", row["created_at"].AsString())
}

func TestRecordRowRoundTrip(t *testing.T) {
	rec := &CanonicalRecord{
		ImageID:             "aptos_7",
		DatasetSource:       "aptos",
		PatientID:           "p_9",
		Modality:            ModalityFundus,
		Laterality:          LateralityOS,
		DiagnosisRaw:        "severe npdr",
		DiagnosisCategory:   "Diabetic Retinopathy",
		Severity:            "Severe",
		DiagnosisConfidence: floatPtr(0.75),
		ClinicalFindings:    []string{"hemorrhage", "exudate"},
		ImageQuality:        QualityModerate,
		PatientAge:          intPtr(48),
		PatientSex:          SexFemale,
		Extra:               map[string]string{"field": "45deg"},
		QualityFlags:        []string{"artifact_blur"},
		IsValid:             true,
		CreatedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	got, err := RecordFromRow(rec.ToRow())
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordFromRowRejectsBadCells(t *testing.T) {
	row := Row{
		"image_id":       StringValue("x_1"),
		"dataset_source": StringValue("x"),
		"patient_age":    StringValue("elderly"),
	}
	_, err := RecordFromRow(row)
	assert.Error(t, err)
}
