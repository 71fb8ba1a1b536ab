package rules

import (
	"sort"
	"strings"

	"github.com/ophtha-harmonizer/internal/domain"
)

// clinicalFindingKeywords maps finding types (signs visible in images) to the
// keywords that indicate them in diagnosis or notes text. One hit per finding
// type: once a keyword fires, the rest of that group is skipped.
var clinicalFindingKeywords = map[string][]string{
	// Hemorrhages
	"hemorrhages":           {"hemorrhage", "bleed", "bleeding", "blood", "heme", "flame", "dot blot", "scattered"},
	"microhemorrhages":      {"micro hemorrh", "microhemorrh", "small bleed", "flame hemorrh"},
	"dot_blot_hemorrhages":  {"dot blot", "dot-blot", "dot and blot", "intraretinal"},
	"flame_hemorrhages":     {"flame hemorrh", "flame shaped", "nerve fiber"},
	"preretinal_hemorrhage": {"preretinal", "subhyaloid", "vitreous hemorrh", "premacular"},

	// Exudates
	"hard_exudates": {"hard exudate", "lipid", "yellow deposit", "retinal deposit", "yel", "exudative"},
	"soft_exudates": {"soft exudate", "cotton wool", "white spot", "infarct"},
	"exudates":      {"exudate", "deposit", "lipid"},

	// Microaneurysms
	"microaneurysms": {"microaneurysm", "microaneurysom", "ma", "aneurysm"},
	"ma_clusters":    {"ma cluster", "aneurysm cluster"},

	// Edema and fluid
	"macular_edema":      {"macular edema", "macula edema", "macula swell", "edema", "fluid", "cystoid"},
	"retinal_thickening": {"retinal thick", "thickening", "swell", "engorg"},
	"serous_detachment":  {"serous detach", "exudative detach", "detach"},
	"cysts":              {"cyst", "cystoid", "intraretinal space"},

	// Neovascularization
	"neovascularization":           {"neovascularization", "neovascular", "new vessels", "nv", "cnv", "cnvs"},
	"neovascular_disc":             {"neovascular disc", "nv disc", "nv elsewhere"},
	"choroidal_neovascularization": {"cnv", "choroidal neovascularization", "subretinal neovascular"},
	"retinal_neovascularization":   {"retinal nv", "peripheral neovascular"},

	// Vessel changes
	"vessel_tortuosity":     {"tortuous", "tortuosity", "winding", "coiled"},
	"vessel_narrowing":      {"narrowing", "narrowed", "attenuated", "sheathed"},
	"vessel_beading":        {"beading", "segmental narrowing", "irregularity"},
	"arteriovenous_nicking": {"av nicking", "nicking", "arteriovenous", "av nick"},

	// Retinal changes
	"cotton_wool_spots":  {"cotton wool", "cws", "white spot", "nerve fiber layer"},
	"retinal_folds":      {"retinal fold", "epiretinal", "macular fold"},
	"hard_drusen":        {"hard drusen", "small drusen", "punctate"},
	"soft_drusen":        {"soft drusen", "large drusen", "confluent drusen"},
	"geographic_atrophy": {"geographic atrophy", "ga", "chorioretinal atrophy"},
	"macular_scarring":   {"macular scar", "scarring", "disciform", "fibrosis"},

	// Optic nerve
	"optic_disc_pallor":    {"pallor", "pale", "optic atrophy"},
	"optic_disc_cupping":   {"cup", "cupping", "excavation"},
	"optic_nerve_swelling": {"swelling", "optic disc swelling", "papilledema", "disc edema"},
	"large_cup_disc_ratio": {"large cup", "cup disc", "c/d ratio"},

	// Other
	"vitreous_hemorrhage":   {"vitreous hemorrh", "vitreous bleed", "vh", "hemorrhage"},
	"subretinal_hemorrhage": {"subretinal hemorrh", "sub retinal"},
	"retinal_detachment":    {"retinal detach", "detached", "rd", "break", "tear", "hole"},
	"laser_scars":           {"laser scar", "photocoagulation", "burn", "scar"},
	"retinal_thinning":      {"thinning", "atrophy", "thin retina"},
}

// findingOrder fixes the iteration order over finding groups so repeated runs
// produce identically ordered results.
var findingOrder = func() []string {
	keys := make([]string, 0, len(clinicalFindingKeywords))
	for k := range clinicalFindingKeywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// FindClinicalFindings detects clinical finding types mentioned in diagnosis
// or notes text. Each finding group contributes at most once.
func FindClinicalFindings(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var findings []string
	for _, finding := range findingOrder {
		if containsAny(lower, clinicalFindingKeywords[finding]) {
			findings = append(findings, finding)
		}
	}
	return findings
}

// imageQualityKeywords maps the five quality levels to their descriptors.
var imageQualityKeywords = map[domain.ImageQuality][]string{
	domain.QualityExcellent:  {"excellent", "perfect", "clear", "sharp", "well-focused"},
	domain.QualityGood:       {"good", "very good", "clear view", "adequate"},
	domain.QualityModerate:   {"moderate", "fair", "acceptable", "ok"},
	domain.QualityPoor:       {"poor", "low quality", "blurry", "unclear", "artifact"},
	domain.QualityUngradable: {"ungradable", "not assessable", "cannot grade", "missing", "absent"},
}

// artifactKeywords maps artifact types to their indicator keywords.
var artifactKeywords = map[string][]string{
	"motion_artifact":         {"motion", "blur", "movement", "eye movement"},
	"media_opacity":           {"opacity", "cataract", "corneal", "haze", "cloudiness"},
	"inadequate_illumination": {"illumination", "lighting", "dark", "dim", "bright"},
	"eyelashes":               {"eyelash", "eyelid", "lash"},
	"glare":                   {"glare", "reflection", "specular"},
	"artifact_present":        {"artifact", "defect", "noise", "interference"},
}

var artifactOrder = func() []string {
	keys := make([]string, 0, len(artifactKeywords))
	for k := range artifactKeywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// AssessImageQuality maps a free-text quality descriptor onto the five-level
// scale. Levels are checked best first; artifact presence downgrades unmatched
// or empty descriptors. Returns ok=false when quality cannot be determined.
func AssessImageQuality(qualityText string, hasArtifacts bool) (domain.ImageQuality, bool) {
	if strings.TrimSpace(qualityText) == "" {
		if hasArtifacts {
			return domain.QualityUngradable, true
		}
		return "", false
	}

	lower := strings.ToLower(qualityText)
	switch {
	case containsAny(lower, imageQualityKeywords[domain.QualityExcellent]):
		return domain.QualityExcellent, true
	case containsAny(lower, imageQualityKeywords[domain.QualityGood]):
		return domain.QualityGood, true
	case containsAny(lower, imageQualityKeywords[domain.QualityModerate]):
		return domain.QualityModerate, true
	case containsAny(lower, imageQualityKeywords[domain.QualityPoor]) || hasArtifacts:
		return domain.QualityPoor, true
	case containsAny(lower, imageQualityKeywords[domain.QualityUngradable]):
		return domain.QualityUngradable, true
	}
	return "", false
}

// DetectArtifacts lists artifact types indicated by quality or notes text.
func DetectArtifacts(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var artifacts []string
	for _, kind := range artifactOrder {
		if containsAny(lower, artifactKeywords[kind]) {
			artifacts = append(artifacts, kind)
		}
	}
	return artifacts
}
