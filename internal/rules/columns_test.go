package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ophtha-harmonizer/internal/domain"
)

func TestDetectColumnRole(t *testing.T) {
	tests := []struct {
		column string
		want   domain.FieldRole
		wantOK bool
	}{
		{column: "diagnosis", want: domain.FieldDiagnosis, wantOK: true},
		{column: "dx", want: domain.FieldDiagnosis, wantOK: true},
		{column: "Label", want: domain.FieldDiagnosis, wantOK: true},
		{column: "disease_grade", want: domain.FieldDiagnosis, wantOK: true},
		// diagnosis group outranks every later group
		{column: "diagnosis_image_type", want: domain.FieldDiagnosis, wantOK: true},
		{column: "image_id", want: domain.FieldImageID, wantOK: true},
		{column: "filename", want: domain.FieldImageID, wantOK: true},
		{column: "img_path", want: domain.FieldImagePath, wantOK: true},
		{column: "eye", want: domain.FieldLaterality, wantOK: true},
		{column: "left_or_right", want: domain.FieldLaterality, wantOK: true},
		{column: "imaging_technique", want: domain.FieldModality, wantOK: true},
		{column: "age", want: domain.FieldPatientAge, wantOK: true},
		{column: "Gender", want: domain.FieldPatientSex, wantOK: true},
		{column: "dpi", want: domain.FieldResolution, wantOK: true},
		{column: "camera_settings", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := DetectColumnRole(tt.column)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMappingConfidenceCapped(t *testing.T) {
	// exact name: len(field)==len(column) -> 1.0
	assert.InDelta(t, 1.0, MappingConfidence(domain.FieldDiagnosis, "diagnosis"), 1e-9)
	// longer column lowers confidence
	assert.InDelta(t, 9.0/20.0, MappingConfidence(domain.FieldDiagnosis, "diagnosis_image_type"), 1e-9)
	// shorter column would exceed 1.0 and is capped
	assert.InDelta(t, 1.0, MappingConfidence(domain.FieldDiagnosis, "label"), 1e-9)
	assert.Zero(t, MappingConfidence(domain.FieldDiagnosis, ""))
}

func TestDetectMapping(t *testing.T) {
	cols := []string{"image_id", "diagnosis", "eye", "age", "camera_settings"}
	mapping, entries := DetectMapping(cols)

	assert.Equal(t, "image_id", mapping[domain.FieldImageID])
	assert.Equal(t, "diagnosis", mapping[domain.FieldDiagnosis])
	assert.Equal(t, "eye", mapping[domain.FieldLaterality])
	assert.Equal(t, "age", mapping[domain.FieldPatientAge])
	_, mapped := mapping[domain.FieldModality]
	assert.False(t, mapped)
	assert.Len(t, entries, 4)
}

func TestDetectMappingFirstColumnWinsPerRole(t *testing.T) {
	mapping, _ := DetectMapping([]string{"diagnosis", "disease_name"})
	assert.Equal(t, "diagnosis", mapping[domain.FieldDiagnosis])
}
