package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophtha-harmonizer/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func newTestHarmonizer(t *testing.T) *Harmonizer {
	t.Helper()
	h, err := NewHarmonizer(128, testLogger())
	require.NoError(t, err)
	return h
}

var standardMapping = domain.ColumnMapping{
	domain.FieldImageID:    "image_id",
	domain.FieldDiagnosis:  "diagnosis",
	domain.FieldLaterality: "eye",
	domain.FieldPatientAge: "age",
}

func TestHarmonizeRowFullRow(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{
		"image_id":  domain.StringValue("img_001"),
		"diagnosis": domain.StringValue("mild npdr"),
		"eye":       domain.StringValue("OD"),
		"age":       domain.StringValue("55"),
	}

	record, err := h.HarmonizeRow(row, standardMapping, "aptos", 0)
	require.NoError(t, err)

	assert.Equal(t, "img_001", record.ImageID)
	assert.Equal(t, "aptos", record.DatasetSource)
	assert.Equal(t, "Diabetic Retinopathy", record.DiagnosisCategory)
	assert.Equal(t, "Mild", record.Severity)
	assert.Equal(t, domain.LateralityOD, record.Laterality)
	require.NotNil(t, record.PatientAge)
	assert.Equal(t, 55, *record.PatientAge)
	assert.True(t, record.IsValid)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestHarmonizeRowNegativeFinding(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{
		"image_id":  domain.StringValue("x1"),
		"diagnosis": domain.StringValue("no dr"),
	}
	record, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
	require.NoError(t, err)

	assert.Equal(t, "Normal", record.DiagnosisCategory)
	assert.Equal(t, "no dr", record.DiagnosisRaw)
	// Negative findings carry no severity.
	assert.Empty(t, record.Severity)
}

func TestHarmonizeRowGeneratedImageID(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{"diagnosis": domain.StringValue("cataract")}
	record, err := h.HarmonizeRow(row, standardMapping, "odir", 17)
	require.NoError(t, err)

	assert.Equal(t, "odir_17", record.ImageID)
	assert.Contains(t, record.QualityFlags, "generated_image_id")
}

func TestHarmonizeRowInvalidAgeRetained(t *testing.T) {
	h := newTestHarmonizer(t)

	for _, raw := range []string{"200", "-1", "old"} {
		row := domain.Row{
			"image_id": domain.StringValue("a"),
			"age":      domain.StringValue(raw),
		}
		record, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
		require.NoError(t, err)

		assert.Nil(t, record.PatientAge, "age %q should be rejected", raw)
		assert.Contains(t, record.QualityFlags, "invalid_age")
		// The record itself survives with the age unset.
		assert.True(t, record.IsValid)
	}
}

func TestHarmonizeRowFloatAgeTruncates(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{
		"image_id": domain.StringValue("a"),
		"age":      domain.StringValue("67.5"),
	}
	record, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
	require.NoError(t, err)
	require.NotNil(t, record.PatientAge)
	assert.Equal(t, 67, *record.PatientAge)
}

func TestHarmonizeRowLateralityOnlyFromMappedColumn(t *testing.T) {
	h := newTestHarmonizer(t)

	// Filenames carry laterality-looking fragments but only the mapped
	// laterality column may set the field.
	mapping := domain.ColumnMapping{domain.FieldImageID: "image_id"}
	for _, filename := range []string{"patient_1_r.png", "scan-od.tif", "patient_2_left.png"} {
		row := domain.Row{"image_id": domain.StringValue(filename)}
		record, err := h.HarmonizeRow(row, mapping, "ds", 0)
		require.NoError(t, err)
		assert.Empty(t, record.Laterality, "filename %s", filename)
	}
}

func TestHarmonizeRowUnmappedRowStaysUnset(t *testing.T) {
	h := newTestHarmonizer(t)

	// "cross" contains "os" and "odir" contains "od"; a synthesized image id
	// built from the dataset name must not leak into laterality.
	for _, dataset := range []string{"cross", "odir"} {
		row := domain.Row{"notes_col": domain.StringValue("n/a")}
		record, err := h.HarmonizeRow(row, domain.ColumnMapping{}, dataset, 3)
		require.NoError(t, err)

		assert.Equal(t, dataset+"_3", record.ImageID)
		assert.Empty(t, record.Laterality)
		assert.Empty(t, record.DiagnosisCategory)
		assert.Empty(t, record.Severity)
		assert.Nil(t, record.PatientAge)
	}
}

func TestHarmonizeRowMultilingualLaterality(t *testing.T) {
	h := newTestHarmonizer(t)

	tests := []struct {
		input string
		want  domain.Laterality
	}{
		{"droit", domain.LateralityOD},
		{"gauche", domain.LateralityOS},
		{"derecha", domain.LateralityOD},
		{"izquierda", domain.LateralityOS},
	}
	for _, tt := range tests {
		row := domain.Row{
			"image_id": domain.StringValue("a"),
			"eye":      domain.StringValue(tt.input),
		}
		record, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, record.Laterality, "input %s", tt.input)
	}
}

func TestHarmonizeRowModalityFromDatasetName(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{"image_id": domain.StringValue("img_9")}
	record, err := h.HarmonizeRow(row, standardMapping, "messidor", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ModalityFundus, record.Modality)
}

func TestHarmonizeRowExplicitSeverityWins(t *testing.T) {
	h := newTestHarmonizer(t)

	mapping := domain.ColumnMapping{
		domain.FieldImageID:   "image_id",
		domain.FieldDiagnosis: "diagnosis",
		domain.FieldSeverity:  "grade",
	}

	// Numeric grade resolved against the condition's grading scale.
	row := domain.Row{
		"image_id":  domain.StringValue("a"),
		"diagnosis": domain.StringValue("diabetic retinopathy"),
		"grade":     domain.IntValue(4),
	}
	record, err := h.HarmonizeRow(row, mapping, "ds", 0)
	require.NoError(t, err)
	assert.Equal(t, "Proliferative", record.Severity)

	// Text grade overrides severity inferred from the diagnosis text.
	row = domain.Row{
		"image_id":  domain.StringValue("b"),
		"diagnosis": domain.StringValue("mild npdr"),
		"grade":     domain.StringValue("severe"),
	}
	record, err = h.HarmonizeRow(row, mapping, "ds", 1)
	require.NoError(t, err)
	assert.Equal(t, "Severe", record.Severity)
}

func TestHarmonizeRowNoSeverityWithoutCategory(t *testing.T) {
	h := newTestHarmonizer(t)

	mapping := domain.ColumnMapping{
		domain.FieldImageID:  "image_id",
		domain.FieldSeverity: "grade",
	}
	row := domain.Row{
		"image_id": domain.StringValue("a"),
		"grade":    domain.StringValue("severe"),
	}
	record, err := h.HarmonizeRow(row, mapping, "ds", 0)
	require.NoError(t, err)
	assert.Empty(t, record.Severity)
	assert.Empty(t, record.DiagnosisCategory)
}

func TestHarmonizeRowExtraColumns(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{
		"image_id": domain.StringValue("a"),
		"camera":   domain.StringValue("topcon"),
		"blank":    domain.Null(),
	}
	record, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
	require.NoError(t, err)

	assert.Equal(t, "topcon", record.Extra["camera"])
	_, hasBlank := record.Extra["blank"]
	assert.False(t, hasBlank, "null cells must not reach extra_json")
}

func TestHarmonizeRowEmptyRow(t *testing.T) {
	h := newTestHarmonizer(t)

	_, err := h.HarmonizeRow(domain.Row{}, standardMapping, "ds", 3)
	assert.Error(t, err)
}

func TestHarmonizeRowClinicalFindings(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{
		"image_id":  domain.StringValue("a"),
		"diagnosis": domain.StringValue("moderate npdr with dot blot hemorrhages and hard exudates"),
	}
	record, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
	require.NoError(t, err)

	assert.Contains(t, record.ClinicalFindings, "dot_blot_hemorrhages")
	assert.Contains(t, record.ClinicalFindings, "hard_exudates")
}

func TestHarmonizeRowMemoConsistency(t *testing.T) {
	h := newTestHarmonizer(t)

	row := domain.Row{
		"image_id":  domain.StringValue("a"),
		"diagnosis": domain.StringValue("Moderate NPDR"),
	}
	first, err := h.HarmonizeRow(row, standardMapping, "ds", 0)
	require.NoError(t, err)
	// Second pass hits the memo cache and must agree.
	second, err := h.HarmonizeRow(row, standardMapping, "ds", 1)
	require.NoError(t, err)

	assert.Equal(t, first.DiagnosisCategory, second.DiagnosisCategory)
	assert.Equal(t, first.Severity, second.Severity)
}
