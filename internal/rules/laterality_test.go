package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ophtha-harmonizer/internal/domain"
)

func TestInferLaterality(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   domain.Laterality
		wantOK bool
	}{
		{name: "plain right", input: "right", want: domain.LateralityOD, wantOK: true},
		{name: "plain left", input: "left", want: domain.LateralityOS, wantOK: true},
		{name: "od code", input: "OD", want: domain.LateralityOD, wantOK: true},
		{name: "os code", input: "os", want: domain.LateralityOS, wantOK: true},
		{name: "single r exact", input: "R", want: domain.LateralityOD, wantOK: true},
		{name: "single l exact", input: "l", want: domain.LateralityOS, wantOK: true},
		{name: "french right", input: "droit", want: domain.LateralityOD, wantOK: true},
		{name: "french left", input: "gauche", want: domain.LateralityOS, wantOK: true},
		{name: "spanish right", input: "derecha", want: domain.LateralityOD, wantOK: true},
		{name: "spanish left", input: "izquierda", want: domain.LateralityOS, wantOK: true},
		{name: "bilateral", input: "bilateral", want: domain.LateralityOU, wantOK: true},
		{name: "both eyes", input: "both eyes", want: domain.LateralityOU, wantOK: true},
		{name: "filename od suffix", input: "patient_17-od.png", want: domain.LateralityOD, wantOK: true},
		{name: "filename left fragment", input: "scan_left_macula.tif", want: domain.LateralityOS, wantOK: true},
		{name: "latin full", input: "oculus sinister", want: domain.LateralityOS, wantOK: true},
		{name: "no signal", input: "macula", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferLaterality(tt.input)
			assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
			if tt.wantOK {
				assert.Equal(t, tt.want, got, "input %q", tt.input)
			}
		})
	}
}

func TestInferLateralitySingleCharNoSubstring(t *testing.T) {
	// Single-character triggers must not fire as substrings of longer words.
	_, ok := InferLaterality("macular")
	assert.False(t, ok)
}
