package rules

import (
	"strings"

	"github.com/ophtha-harmonizer/internal/domain"
)

// lateralityPatterns maps each laterality code to its triggers: English words,
// Latin abbreviations, French and Spanish terms, and filename fragments
// (_r., -od, _left). Single-character triggers match exactly only, never as
// substrings, so "r" does not fire inside arbitrary words.
var lateralityPatterns = map[domain.Laterality][]string{
	domain.LateralityOD: {
		"right", "od", "oculus dexter", "re", "r", "r.", "right eye", "r eye",
		"_r.", "_r_", "-r-", "_od", "-od", "_right", "-right",
		"o.d.", "odex",
		"droit", "derecha", "right side",
	},
	domain.LateralityOS: {
		"left", "os", "oculus sinister", "le", "l", "l.", "left eye", "l eye",
		"_l.", "_l_", "-l-", "_os", "-os", "_left", "-left",
		"o.s.", "osex",
		"gauche", "izquierda", "left side",
	},
	domain.LateralityOU: {
		"both", "ou", "oculus uterque", "bilateral", "binocular",
		"both eyes", "each eye", "combined", "both sides",
		"bilat", "bilaterally",
	},
}

// lateralityOrder fixes the evaluation order of the three codes.
var lateralityOrder = []domain.Laterality{
	domain.LateralityOD, domain.LateralityOS, domain.LateralityOU,
}

var sortedLateralityPatterns = func() map[domain.Laterality][]string {
	out := make(map[domain.Laterality][]string, len(lateralityPatterns))
	for code, patterns := range lateralityPatterns {
		cleaned := make([]string, 0, len(patterns))
		seen := make(map[string]bool, len(patterns))
		for _, p := range patterns {
			c := CleanText(p)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			cleaned = append(cleaned, c)
		}
		out[code] = byLengthDesc(cleaned)
	}
	return out
}()

// InferLaterality derives the eye (OD, OS, OU) from a laterality descriptor,
// which may be a plain word ("right", "gauche"), a code ("od"), or a filename
// containing a laterality fragment ("patient_03_l_macula.png"). A trigger
// matches when it equals the cleaned input exactly, or, for triggers longer
// than one character, when it occurs as a substring.
func InferLaterality(value string) (domain.Laterality, bool) {
	cleaned := CleanText(value)
	if strings.TrimSpace(cleaned) == "" {
		return "", false
	}
	for _, code := range lateralityOrder {
		for _, trigger := range sortedLateralityPatterns[code] {
			if trigger == cleaned || (len(trigger) > 1 && strings.Contains(cleaned, trigger)) {
				return code, true
			}
		}
	}
	return "", false
}
