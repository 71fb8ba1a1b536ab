package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ophtha-harmonizer/internal/domain"
)

func TestInferModality(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		desc    string
		want    domain.Modality
		wantOK  bool
	}{
		{name: "oct filename", dataset: "", desc: "patient_001_OCT_macula.tif", want: domain.ModalityOCT, wantOK: true},
		{name: "dataset name implies fundus", dataset: "messidor", desc: "", want: domain.ModalityFundus, wantOK: true},
		{name: "aptos is fundus", dataset: "aptos2019", desc: "img_044.png", want: domain.ModalityFundus, wantOK: true},
		{name: "octa description", dataset: "", desc: "oct angiography macula scan", want: domain.ModalityOCTA, wantOK: true},
		{name: "autofluorescence", dataset: "", desc: "faf imaging series", want: domain.ModalityAutofluorescence, wantOK: true},
		{name: "visual field", dataset: "", desc: "humphrey 24-2 threshold", want: domain.ModalityVisualField, wantOK: true},
		{name: "slit lamp", dataset: "", desc: "slit lamp photography of cornea", want: domain.ModalitySlitLamp, wantOK: true},
		{name: "no signal", dataset: "", desc: "zzz qqq", wantOK: false},
		{name: "both empty", dataset: "", desc: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferModality(tt.dataset, tt.desc)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestInferModalityValidVocabulary(t *testing.T) {
	// Every pattern table key must be part of the closed modality vocabulary.
	for m := range modalityPatterns {
		assert.True(t, m.IsValid(), "modality %q not in vocabulary", m)
	}
}

func TestInferModalityDeterministic(t *testing.T) {
	first, ok := InferModality("study", "oct and fundus composite")
	assert.True(t, ok)
	for i := 0; i < 50; i++ {
		again, ok := InferModality("study", "oct and fundus composite")
		assert.True(t, ok)
		assert.Equal(t, first, again)
	}
}
