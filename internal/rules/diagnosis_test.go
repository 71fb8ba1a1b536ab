package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDiagnosis(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantCategory string
		wantSeverity string
		wantOK       bool
	}{
		{name: "mild npdr", input: "mild npdr", wantCategory: "Diabetic Retinopathy", wantSeverity: "Mild", wantOK: true},
		{name: "moderate npdr", input: "moderate npdr", wantCategory: "Diabetic Retinopathy", wantSeverity: "Moderate", wantOK: true},
		{name: "pdr abbreviation", input: "pdr", wantCategory: "Diabetic Retinopathy", wantSeverity: "Proliferative", wantOK: true},
		{name: "negative finding maps to normal", input: "no dr", wantCategory: "Normal", wantSeverity: "", wantOK: true},
		{name: "uppercase and punctuation", input: "  Moderate NPDR!  ", wantCategory: "Diabetic Retinopathy", wantSeverity: "Moderate", wantOK: true},
		{name: "longest key wins over shorter", input: "proliferative diabetic retinopathy", wantCategory: "Diabetic Retinopathy", wantSeverity: "Proliferative", wantOK: true},
		{name: "wet amd", input: "wet amd", wantCategory: "Age-Related Macular Degeneration", wantSeverity: "Severe", wantOK: true},
		{name: "embedded keyword", input: "patient presents with severe npdr today", wantCategory: "Diabetic Retinopathy", wantSeverity: "Severe", wantOK: true},
		{name: "glaucoma suspect before glaucoma", input: "glaucoma suspect", wantCategory: "Glaucoma Suspect", wantSeverity: "", wantOK: true},
		{name: "cataract plain", input: "cataract", wantCategory: "Cataract", wantSeverity: "", wantOK: true},
		{name: "hypermature cataract", input: "hypermature cataract", wantCategory: "Cataract", wantSeverity: "Severe", wantOK: true},
		{name: "keratoconus", input: "keratoconus", wantCategory: "Keratoconus", wantSeverity: "Moderate", wantOK: true},
		{name: "unknown text", input: "lorem ipsum", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := NormalizeDiagnosis(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantCategory, rule.Category)
			assert.Equal(t, tt.wantSeverity, rule.Severity)
		})
	}
}

func TestNormalizeDiagnosisDeterministic(t *testing.T) {
	// Same input always yields the same result regardless of map iteration order.
	first, ok := NormalizeDiagnosis("moderate non proliferative dr with dme")
	assert.True(t, ok)
	for i := 0; i < 50; i++ {
		again, ok := NormalizeDiagnosis("moderate non proliferative dr with dme")
		assert.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestInferSeverity(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		condition string
		want      string
	}{
		{name: "proliferative tier on dr scale", text: "proliferative changes", condition: "diabetic retinopathy", want: "Proliferative"},
		{name: "advanced hits top tier first", text: "advanced disease", condition: "glaucoma", want: "Terminal"},
		{name: "severe tier", text: "severe thinning", condition: "corneal disease", want: "Severe"},
		{name: "moderate tier", text: "moderate changes", condition: "cataract", want: "Moderate"},
		{name: "mild tier", text: "early signs", condition: "amd", want: "Early"},
		{name: "negative tier", text: "no retinopathy seen", condition: "diabetic retinopathy", want: "None"},
		{name: "condition casing ignored", text: "severe", condition: "Diabetic Retinopathy", want: "Severe"},
		{name: "hypermature on cataract scale", text: "hypermature lens", condition: "cataract", want: "Hypermature"},
		{name: "top tier beyond scale ceiling", text: "proliferative", condition: "corneal disease", want: ""},
		{name: "ungraded condition", text: "severe", condition: "myopia", want: ""},
		{name: "no tier keyword", text: "stable appearance", condition: "glaucoma", want: ""},
		{name: "empty condition", text: "severe", condition: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferSeverity(tt.text, tt.condition))
		})
	}
}

func TestGradingScale(t *testing.T) {
	scale := GradingScale("diabetic retinopathy")
	assert.Equal(t, "Proliferative", scale[4])
	assert.Equal(t, "None", scale[0])

	assert.Nil(t, GradingScale("myopia"))

	// returned map is a copy
	scale[4] = "mutated"
	assert.Equal(t, "Proliferative", GradingScale("diabetic retinopathy")[4])
}
