package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ophtha-harmonizer/internal/domain"
)

func TestStandardizeAge(t *testing.T) {
	tests := []struct {
		name   string
		value  domain.Value
		want   int
		wantOK bool
	}{
		{name: "int in range", value: domain.IntValue(55), want: 55, wantOK: true},
		{name: "float truncates", value: domain.FloatValue(67.5), want: 67, wantOK: true},
		{name: "numeric string", value: domain.StringValue("67.5"), want: 67, wantOK: true},
		{name: "zero boundary", value: domain.IntValue(0), want: 0, wantOK: true},
		{name: "upper boundary", value: domain.IntValue(150), want: 150, wantOK: true},
		{name: "above range", value: domain.IntValue(200), wantOK: false},
		{name: "negative", value: domain.IntValue(-1), wantOK: false},
		{name: "non-numeric", value: domain.StringValue("old"), wantOK: false},
		{name: "null", value: domain.Null(), wantOK: false},
		{name: "empty string", value: domain.StringValue(""), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StandardizeAge(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStandardizeSex(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   domain.Sex
		wantOK bool
	}{
		{name: "single m", input: "m", want: domain.SexMale, wantOK: true},
		{name: "uppercase female", input: "FEMALE", want: domain.SexFemale, wantOK: true},
		{name: "french femme", input: "femme", want: domain.SexFemale, wantOK: true},
		{name: "spanish masculino", input: "masculino", want: domain.SexMale, wantOK: true},
		{name: "exact beats substring", input: "f", want: domain.SexFemale, wantOK: true},
		{name: "other", input: "non-binary", want: domain.SexOther, wantOK: true},
		{name: "na maps unknown", input: "n/a", want: domain.SexUnknown, wantOK: true},
		{name: "padded", input: "  male  ", want: domain.SexMale, wantOK: true},
		{name: "no signal", input: "xyz", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StandardizeSex(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStandardizeEthnicity(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   domain.Ethnicity
		wantOK bool
	}{
		{name: "caucasian", input: "White", want: domain.EthnicityCaucasian, wantOK: true},
		{name: "african american", input: "African American", want: domain.EthnicityAfrican, wantOK: true},
		{name: "asian subgroup", input: "south asian", want: domain.EthnicityAsian, wantOK: true},
		{name: "hispanic", input: "latino", want: domain.EthnicityHispanic, wantOK: true},
		{name: "middle eastern", input: "arab", want: domain.EthnicityMiddleEastern, wantOK: true},
		{name: "pacific islander", input: "hawaiian", want: domain.EthnicityPacificIslander, wantOK: true},
		{name: "mixed", input: "multiracial", want: domain.EthnicityMixed, wantOK: true},
		{name: "no signal", input: "qqq", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StandardizeEthnicity(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDetectTreatmentsAndStudyPhases(t *testing.T) {
	treatments := DetectTreatments("status post focal laser, anti-vegf injection series")
	assert.Contains(t, treatments, "laser")
	assert.Contains(t, treatments, "injection")

	phases := DetectStudyPhases("baseline visit")
	assert.Contains(t, phases, "baseline")
	assert.Contains(t, phases, "followup") // "visit" is a follow-up keyword

	assert.Nil(t, DetectTreatments(""))
	assert.Nil(t, DetectStudyPhases("   "))
}
