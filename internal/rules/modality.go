package rules

import (
	"sort"
	"strings"

	"github.com/ophtha-harmonizer/internal/domain"
)

// modalityPatterns maps each modality to its trigger keywords. Dataset names
// act as triggers too (aptos, messidor, eyepacs are fundus photograph sets).
var modalityPatterns = map[domain.Modality][]string{
	domain.ModalityFundus: {
		"fundus", "color fundus", "cf", "cfp", "color photograph", "color photography",
		"optos", "widefield", "wide field", "wf", "macula", "retinal", "retina",
		"aptos", "messidor", "refuge", "ukiadb", "eyepacs", "diabetic retinopathy",
		"color fundus photograph", "digital fundus", "fundus image", "fundus photo",
		"disc", "macula view", "macular view", "posterior pole", "peripheral retina",
	},
	domain.ModalityOCT: {
		"oct", "optical coherence", "spectral domain", "sd-oct", "sdoct",
		"time domain", "td-oct", "swept source", "ss-oct", "ssoct",
		"structural", "cross section", "b-scan", "volumetric", "3d", "volume",
		"oct scan", "oct imaging", "optical coherence tomography", "macular oct",
		"optic disc oct", "anterior segment oct", "as-oct",
	},
	domain.ModalityOCTA: {
		"octa", "oct angiography", "oct angio", "angiography", "angioography",
		"optical coherence tomography angiography", "angiogram",
		"vascular imaging", "capillary network", "vessel density",
	},
	domain.ModalitySlitLamp: {
		"slit", "slit-lamp", "slit lamp", "anterior", "anterior segment",
		"anterior chamber", "lens", "cornea", "iris", "angle", "goniosc",
		"biomicroscopy", "slit lamp photography", "anterior segment imaging",
	},
	domain.ModalityFluorescein: {
		"fa", "fag", "fluorescein", "angiography", "fa imaging",
		"icg", "indocyanine", "angiogram", "fundus angiography",
		"retinal angiography", "fluorescein angiogram",
	},
	domain.ModalityAutofluorescence: {
		"faf", "autofluorescence", "faf imaging", "af", "afo",
		"fundus autofluorescence", "autofluorescent", "af imaging",
	},
	domain.ModalityInfrared: {
		"ir", "infrared", "infrared imaging", "near infrared", "nir", "nir imaging",
		"ir reflectance", "infrared reflectance", "reflectance imaging",
	},
	domain.ModalityUltrasound: {
		"ultrasound", "us", "b-scan", "a-scan", "b scan", "a scan",
		"echography", "echogram", "ultrasonic", "ultrasound imaging",
	},
	domain.ModalityAnteriorSegment: {
		"anterior segment", "anterior chamber", "cornea imaging", "iris imaging",
		"lens imaging", "angle imaging", "gonioscopy", "anterior imaging",
	},
	domain.ModalitySpecularMicroscopy: {
		"specular", "endothelial", "endothelial cell", "cell count",
		"corneal endothelium", "endothelial imaging",
	},
	domain.ModalityVisualField: {
		"visual field", "vf", "perimetry", "automated", "threshold",
		"humphrey", "field analyzer", "visual field test", "vf test",
		"perimetric", "perimetry test",
	},
	domain.ModalityAnteriorSegmentOCT: {
		"as-oct", "anterior segment oct", "corneal", "pachymetry",
		"anterior chamber depth", "angle measurement",
	},
}

// modalityOrder lists modalities ordered by their single longest trigger,
// longest first, so modalities with highly specific triggers are consulted
// before generic ones. Computed once at init.
var modalityOrder = func() []domain.Modality {
	type entry struct {
		modality domain.Modality
		maxLen   int
	}
	entries := make([]entry, 0, len(modalityPatterns))
	for m, patterns := range modalityPatterns {
		longest := 0
		for _, p := range patterns {
			if len(p) > longest {
				longest = len(p)
			}
		}
		entries = append(entries, entry{m, longest})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].maxLen != entries[j].maxLen {
			return entries[i].maxLen > entries[j].maxLen
		}
		return entries[i].modality < entries[j].modality
	})
	out := make([]domain.Modality, len(entries))
	for i, e := range entries {
		out[i] = e.modality
	}
	return out
}()

// sortedModalityPatterns holds each modality's triggers sorted longest first,
// with punctuation stripped the same way the matched text is.
var sortedModalityPatterns = func() map[domain.Modality][]string {
	out := make(map[domain.Modality][]string, len(modalityPatterns))
	for m, patterns := range modalityPatterns {
		cleaned := make([]string, len(patterns))
		for i, p := range patterns {
			cleaned[i] = CleanText(p)
		}
		out[m] = byLengthDesc(cleaned)
	}
	return out
}()

// InferModality derives the imaging modality from a dataset name and an image
// description (typically a filename). The two inputs are concatenated and
// cleaned; modalities are consulted in order of their longest trigger, and
// within each modality triggers are tried longest first.
func InferModality(datasetName, imageDescription string) (domain.Modality, bool) {
	combined := CleanText(datasetName + " " + imageDescription)
	if strings.TrimSpace(combined) == "" {
		return "", false
	}
	for _, m := range modalityOrder {
		for _, trigger := range sortedModalityPatterns[m] {
			if strings.Contains(combined, trigger) {
				return m, true
			}
		}
	}
	return "", false
}
