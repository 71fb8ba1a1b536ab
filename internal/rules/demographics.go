package rules

import (
	"sort"
	"strings"

	"github.com/ophtha-harmonizer/internal/domain"
)

// sexMappings maps each sex code to its accepted descriptors, including
// French, Spanish, and German variants.
var sexMappings = map[domain.Sex][]string{
	domain.SexMale:    {"m", "male", "man", "masculino", "homme", "herr"},
	domain.SexFemale:  {"f", "female", "woman", "femenino", "femme", "frau"},
	domain.SexOther:   {"o", "other", "non-binary", "prefer not to say", "unknown"},
	domain.SexUnknown: {"u", "unknown", "unclear", "not specified", "n/a", "na"},
}

// sexOrder fixes the evaluation order. M and F are consulted before O and U so
// "unknown" style descriptors fall through to the catch-all codes last.
var sexOrder = []domain.Sex{
	domain.SexMale, domain.SexFemale, domain.SexOther, domain.SexUnknown,
}

// StandardizeSex maps a sex/gender descriptor to a single-character code.
// Exact matches are tried across all codes before substring matches, so the
// input "f" resolves to F rather than substring-matching something longer.
func StandardizeSex(input string) (domain.Sex, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return "", false
	}

	for _, code := range sexOrder {
		for _, variant := range sexMappings[code] {
			if variant == trimmed {
				return code, true
			}
		}
	}

	// Substring pass on punctuation-stripped text.
	cleaned := strings.ReplaceAll(CleanText(trimmed), " ", "")
	for _, code := range sexOrder {
		for _, variant := range sexMappings[code] {
			vc := strings.ReplaceAll(CleanText(variant), " ", "")
			if vc != "" && strings.Contains(cleaned, vc) {
				return code, true
			}
		}
	}
	return "", false
}

// ethnicityMappings maps the eight standard ethnicity categories to their
// descriptor keywords.
var ethnicityMappings = map[domain.Ethnicity][]string{
	domain.EthnicityCaucasian:       {"caucasian", "white", "european", "anglo"},
	domain.EthnicityAfrican:         {"african", "black", "african american", "afro-caribbean"},
	domain.EthnicityAsian:           {"asian", "east asian", "south asian", "indian", "chinese", "japanese"},
	domain.EthnicityHispanic:        {"hispanic", "latino", "latin american", "spanish"},
	domain.EthnicityMiddleEastern:   {"middle eastern", "arab", "persian", "turkish"},
	domain.EthnicityPacificIslander: {"pacific islander", "hawaiian"},
	domain.EthnicityMixed:           {"mixed", "multiracial", "biracial"},
	domain.EthnicityOther:           {"other", "prefer not to say", "unknown"},
}

var ethnicityOrder = []domain.Ethnicity{
	domain.EthnicityCaucasian, domain.EthnicityAfrican, domain.EthnicityAsian,
	domain.EthnicityHispanic, domain.EthnicityMiddleEastern,
	domain.EthnicityPacificIslander, domain.EthnicityMixed, domain.EthnicityOther,
}

// StandardizeEthnicity maps an ethnicity/race descriptor onto the standard
// categories by substring match on cleaned text.
func StandardizeEthnicity(input string) (domain.Ethnicity, bool) {
	cleaned := CleanText(input)
	if strings.TrimSpace(cleaned) == "" {
		return "", false
	}
	for _, category := range ethnicityOrder {
		for _, variant := range ethnicityMappings[category] {
			if strings.Contains(cleaned, CleanText(variant)) {
				return category, true
			}
		}
	}
	return "", false
}

// StandardizeAge converts an age cell to a validated integer. Floats and
// numeric strings are truncated toward zero ("67.5" becomes 67); values
// outside 0-150 years are rejected.
func StandardizeAge(v domain.Value) (int, bool) {
	if v.IsNull() {
		return 0, false
	}
	n, err := v.AsInt()
	if err != nil {
		return 0, false
	}
	if n < 0 || n > 150 {
		return 0, false
	}
	return int(n), true
}

// treatmentKeywords groups treatment-status keywords found in clinical notes.
var treatmentKeywords = map[string][]string{
	"laser":     {"laser", "photocoagulation", "pan-retinal", "focal", "scatter"},
	"injection": {"injection", "intravitreal", "ivt", "anti-vegf", "steroid"},
	"surgery":   {"surgery", "surgical", "vitrectomy", "scleral"},
	"medical":   {"medical", "medication", "medical management", "drug"},
	"untreated": {"untreated", "no treatment", "naive", "therapy-naive"},
}

// studyKeywords groups study-phase keywords found in clinical notes.
var studyKeywords = map[string][]string{
	"baseline": {"baseline", "initial", "first visit", "entry"},
	"followup": {"follow-up", "followup", "visit", "month", "year", "week"},
	"endpoint": {"endpoint", "final", "end", "conclusion"},
}

func detectKeywordGroups(text string, groups map[string][]string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var hits []string
	for _, k := range keys {
		if containsAny(lower, groups[k]) {
			hits = append(hits, k)
		}
	}
	return hits
}

// DetectTreatments lists treatment statuses mentioned in clinical notes.
func DetectTreatments(text string) []string {
	return detectKeywordGroups(text, treatmentKeywords)
}

// DetectStudyPhases lists study phases mentioned in clinical notes.
func DetectStudyPhases(text string) []string {
	return detectKeywordGroups(text, studyKeywords)
}
