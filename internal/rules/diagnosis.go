package rules

import "strings"

// DiagnosisRule is the standardized outcome for one diagnosis keyword:
// the canonical category plus an optional severity (empty when the keyword
// carries no severity information).
type DiagnosisRule struct {
	Category string
	Severity string
}

// diagnosisMapping maps diagnosis keywords (cleaned, lowercase) to standardized
// category and severity. Negative findings ("no dr", "clear lens") map to Normal.
// Severity terms follow the ICDR scale for diabetic retinopathy and the common
// clinical grading conventions for the other conditions.
var diagnosisMapping = map[string]DiagnosisRule{
	// Diabetic retinopathy
	"diabetic retinopathy":        {"Diabetic Retinopathy", ""},
	"dr":                          {"Diabetic Retinopathy", ""},
	"diabetes retinopathy":        {"Diabetic Retinopathy", ""},
	"retinopathy due to diabetes": {"Diabetic Retinopathy", ""},
	"no dr":                       {"Normal", ""},
	"no diabetic retinopathy":     {"Normal", ""},
	"without dr":                  {"Normal", ""},
	"negative for dr":             {"Normal", ""},

	"non-proliferative":                  {"Diabetic Retinopathy", "Mild"},
	"nonproliferative":                   {"Diabetic Retinopathy", "Mild"},
	"npdr":                               {"Diabetic Retinopathy", "Mild"},
	"mild npdr":                          {"Diabetic Retinopathy", "Mild"},
	"mild non-proliferative":             {"Diabetic Retinopathy", "Mild"},
	"minimal npdr":                       {"Diabetic Retinopathy", "Mild"},
	"moderate npdr":                      {"Diabetic Retinopathy", "Moderate"},
	"moderate non-proliferative":         {"Diabetic Retinopathy", "Moderate"},
	"moderately severe npdr":             {"Diabetic Retinopathy", "Moderate"},
	"severe npdr":                        {"Diabetic Retinopathy", "Severe"},
	"severe non-proliferative":           {"Diabetic Retinopathy", "Severe"},
	"proliferative":                      {"Diabetic Retinopathy", "Proliferative"},
	"proliferative dr":                   {"Diabetic Retinopathy", "Proliferative"},
	"proliferative diabetic retinopathy": {"Diabetic Retinopathy", "Proliferative"},
	"pdr":                                {"Diabetic Retinopathy", "Proliferative"},
	"advanced pdr":                       {"Diabetic Retinopathy", "Proliferative"},
	"advanced diabetic eye disease":      {"Diabetic Retinopathy", "Severe"},

	// Diabetic macular edema
	"diabetic macular edema":        {"Diabetic Macular Edema", ""},
	"dme":                           {"Diabetic Macular Edema", ""},
	"diabetic macula":               {"Diabetic Macular Edema", ""},
	"macular edema from diabetes":   {"Diabetic Macular Edema", ""},
	"diabetic edema":                {"Diabetic Macular Edema", ""},
	"dme mild":                      {"Diabetic Macular Edema", "Mild"},
	"dme moderate":                  {"Diabetic Macular Edema", "Moderate"},
	"dme severe":                    {"Diabetic Macular Edema", "Severe"},
	"center involved macular edema": {"Diabetic Macular Edema", "Severe"},
	"cime":                          {"Diabetic Macular Edema", "Severe"},

	// Age-related macular degeneration
	"amd":                              {"Age-Related Macular Degeneration", ""},
	"age-related macular degeneration": {"Age-Related Macular Degeneration", ""},
	"age related macular degeneration": {"Age-Related Macular Degeneration", ""},
	"armd":                             {"Age-Related Macular Degeneration", ""},
	"macular degeneration":             {"Age-Related Macular Degeneration", ""},
	"macula degeneration":              {"Age-Related Macular Degeneration", ""},

	"wet amd":                      {"Age-Related Macular Degeneration", "Severe"},
	"wet age-related":              {"Age-Related Macular Degeneration", "Severe"},
	"neovascular amd":              {"Age-Related Macular Degeneration", "Severe"},
	"exudative amd":                {"Age-Related Macular Degeneration", "Severe"},
	"choroidal neovascularization": {"Age-Related Macular Degeneration", "Severe"},
	"cnv":                          {"Age-Related Macular Degeneration", "Severe"},
	"dry amd":                      {"Age-Related Macular Degeneration", "Moderate"},
	"dry age-related":              {"Age-Related Macular Degeneration", "Moderate"},
	"atrophic amd":                 {"Age-Related Macular Degeneration", "Moderate"},
	"geographic atrophy":           {"Age-Related Macular Degeneration", "Severe"},
	"ga":                           {"Age-Related Macular Degeneration", "Severe"},
	"early amd":                    {"Age-Related Macular Degeneration", "Mild"},
	"early age-related":            {"Age-Related Macular Degeneration", "Mild"},
	"intermediate amd":             {"Age-Related Macular Degeneration", "Moderate"},
	"intermediate age-related":     {"Age-Related Macular Degeneration", "Moderate"},
	"advanced amd":                 {"Age-Related Macular Degeneration", "Severe"},
	"advanced age-related":         {"Age-Related Macular Degeneration", "Severe"},

	// Cataract
	"cataract":           {"Cataract", ""},
	"cataract formation": {"Cataract", ""},
	"cataracts":          {"Cataract", ""},
	"no cataract":        {"Normal", ""},
	"without cataract":   {"Normal", ""},
	"clear lens":         {"Normal", ""},

	"nuclear cataract":              {"Cataract", "Moderate"},
	"nuclear sclerotic":             {"Cataract", "Moderate"},
	"nuclear":                       {"Cataract", "Moderate"},
	"cortical cataract":             {"Cataract", "Moderate"},
	"cortical":                      {"Cataract", "Moderate"},
	"posterior subcapsular":         {"Cataract", "Severe"},
	"posterior subcapsular cataract": {"Cataract", "Severe"},
	"subcapsular":                   {"Cataract", "Moderate"},
	"mixed cataract":                {"Cataract", "Moderate"},
	"brown cataract":                {"Cataract", "Moderate"},
	"brunescent":                    {"Cataract", "Moderate"},

	"immature cataract":   {"Cataract", "Mild"},
	"immature":            {"Cataract", "Mild"},
	"incipient":           {"Cataract", "Mild"},
	"beginning":           {"Cataract", "Mild"},
	"early cataract":      {"Cataract", "Mild"},
	"intumescent":         {"Cataract", "Mild"},
	"intumescence":        {"Cataract", "Mild"},
	"mature cataract":     {"Cataract", "Severe"},
	"mature":              {"Cataract", "Severe"},
	"swollen":             {"Cataract", "Moderate"},
	"hypermature":         {"Cataract", "Severe"},
	"hypermature cataract": {"Cataract", "Severe"},
	"overripe":            {"Cataract", "Severe"},
	"white mature":        {"Cataract", "Severe"},
	"soft cataract":       {"Cataract", "Mild"},
	"hard cataract":       {"Cataract", "Severe"},
	"congenital cataract": {"Cataract", "Moderate"},
	"traumatic cataract":  {"Cataract", "Moderate"},
	"radiation cataract":  {"Cataract", "Moderate"},

	// Glaucoma
	"glaucoma":              {"Glaucoma", ""},
	"glaucomas":             {"Glaucoma", ""},
	"no glaucoma":           {"Normal", ""},
	"without glaucoma":      {"Normal", ""},
	"negative for glaucoma": {"Normal", ""},

	"open angle glaucoma":      {"Glaucoma", "Moderate"},
	"primary open angle":       {"Glaucoma", "Moderate"},
	"poag":                     {"Glaucoma", "Moderate"},
	"angle closure glaucoma":   {"Glaucoma", "Severe"},
	"acute angle closure":      {"Glaucoma", "Severe"},
	"chronic angle closure":    {"Glaucoma", "Moderate"},
	"secondary glaucoma":       {"Glaucoma", "Moderate"},
	"normal tension glaucoma":  {"Glaucoma", "Mild"},
	"ntg":                      {"Glaucoma", "Mild"},
	"pigmentary glaucoma":      {"Glaucoma", "Moderate"},
	"exfoliative glaucoma":     {"Glaucoma", "Moderate"},
	"pseudoexfoliation":        {"Glaucoma", "Moderate"},
	"congenital glaucoma":      {"Glaucoma", "Moderate"},
	"neovascular glaucoma":     {"Glaucoma", "Severe"},
	"uveitic glaucoma":         {"Glaucoma", "Moderate"},

	"glaucoma suspect":      {"Glaucoma Suspect", ""},
	"suspected glaucoma":    {"Glaucoma Suspect", ""},
	"glaucoma risk":         {"Glaucoma Suspect", ""},
	"at risk for glaucoma":  {"Glaucoma Suspect", ""},
	"ocular hypertension":   {"Glaucoma Suspect", "Mild"},
	"elevated iop":          {"Glaucoma Suspect", "Mild"},
	"high iop":              {"Glaucoma Suspect", "Mild"},
	"suspicious optic nerve": {"Glaucoma Suspect", ""},
	"large cup disc":        {"Glaucoma Suspect", ""},

	// Macular edema (non-diabetic)
	"macular edema":         {"Macular Edema", ""},
	"macula edema":          {"Macular Edema", ""},
	"macula swelling":       {"Macular Edema", ""},
	"retinal swelling":      {"Macular Edema", ""},
	"edema macula":          {"Macular Edema", ""},
	"cystoid macular edema": {"Macular Edema", "Severe"},
	"cystoid edema":         {"Macular Edema", "Severe"},
	"cme":                   {"Macular Edema", "Severe"},
	"serous detachment":     {"Macular Edema", "Severe"},
	"exudative detachment":  {"Macular Edema", "Severe"},

	// Drusen
	"drusen":         {"Drusen", ""},
	"drusens":        {"Drusen", ""},
	"macular drusen": {"Drusen", ""},
	"retinal drusen": {"Drusen", ""},

	"hard drusen":            {"Drusen", "Mild"},
	"small drusen":           {"Drusen", "Mild"},
	"tiny drusen":            {"Drusen", "Mild"},
	"soft drusen":            {"Drusen", "Moderate"},
	"large drusen":           {"Drusen", "Moderate"},
	"confluent drusen":       {"Drusen", "Severe"},
	"extensive drusen":       {"Drusen", "Severe"},
	"soft indistinct drusen": {"Drusen", "Moderate"},

	// Refractive errors
	"myopia":              {"Myopia", ""},
	"myopic":              {"Myopia", ""},
	"myopia diagnosis":    {"Myopia", ""},
	"myopic shift":        {"Myopia", ""},
	"high myopia":         {"Myopia", "Severe"},
	"high myopic":         {"Myopia", "Severe"},
	"pathologic myopia":   {"Myopia", "Severe"},
	"degenerative myopia": {"Myopia", "Severe"},
	"hyperopia":           {"Hyperopia", ""},
	"hyperopic":           {"Hyperopia", ""},
	"farsightedness":      {"Hyperopia", ""},
	"high hyperopia":      {"Hyperopia", "Moderate"},
	"astigmatism":         {"Astigmatism", ""},
	"astigmatic":          {"Astigmatism", ""},
	"high astigmatism":    {"Astigmatism", "Moderate"},
	"presbyopia":          {"Presbyopia", ""},
	"presbyopic":          {"Presbyopia", ""},
	"refractive error":    {"Myopia", ""},
	"refractive anomaly":  {"Myopia", ""},
	"ametropia":           {"Myopia", ""},
	"anisometropia":       {"Myopia", ""},

	// Hypertensive retinopathy
	"hypertensive":                  {"Hypertensive Retinopathy", ""},
	"hypertensive retinopathy":      {"Hypertensive Retinopathy", ""},
	"hypertension retinopathy":      {"Hypertensive Retinopathy", ""},
	"high blood pressure eye":       {"Hypertensive Retinopathy", ""},
	"hypertensive optic neuropathy": {"Hypertensive Retinopathy", "Severe"},
	"malignant hypertension":        {"Hypertensive Retinopathy", "Severe"},
	"hypertensive crisis":           {"Hypertensive Retinopathy", "Severe"},

	// Vascular occlusions
	"retinal artery occlusion": {"Retinal Vein/Artery Occlusion", "Severe"},
	"central retinal artery":   {"Retinal Vein/Artery Occlusion", "Severe"},
	"crao":                     {"Retinal Vein/Artery Occlusion", "Severe"},
	"branch retinal artery":    {"Retinal Vein/Artery Occlusion", "Severe"},
	"brao":                     {"Retinal Vein/Artery Occlusion", "Severe"},
	"retinal vein occlusion":   {"Retinal Vein/Artery Occlusion", "Severe"},
	"central retinal vein":     {"Retinal Vein/Artery Occlusion", "Severe"},
	"crvo":                     {"Retinal Vein/Artery Occlusion", "Severe"},
	"branch retinal vein":      {"Retinal Vein/Artery Occlusion", "Severe"},
	"brvo":                     {"Retinal Vein/Artery Occlusion", "Severe"},
	"hemi-retinal vein":        {"Retinal Vein/Artery Occlusion", "Severe"},
	"hrvo":                     {"Retinal Vein/Artery Occlusion", "Severe"},
	"vascular occlusion":       {"Retinal Vein/Artery Occlusion", "Severe"},
	"retinal infarct":          {"Retinal Vein/Artery Occlusion", "Severe"},

	// Retinal detachment and breaks
	"retinal detachment":       {"Retinal Detachment", "Severe"},
	"detached retina":          {"Retinal Detachment", "Severe"},
	"rhegmatogenous":           {"Retinal Detachment", "Severe"},
	"tractional detachment":    {"Retinal Detachment", "Severe"},
	"rhegmatogenous detachment": {"Retinal Detachment", "Severe"},
	"total detachment":         {"Retinal Detachment", "Severe"},
	"macula-off":               {"Retinal Detachment", "Severe"},
	"macula-on":                {"Retinal Detachment", "Moderate"},
	"retinal break":            {"Retinal Detachment", "Moderate"},
	"retinal tear":             {"Retinal Detachment", "Moderate"},
	"retinal hole":             {"Retinal Detachment", "Moderate"},
	"macular hole":             {"Retinal Detachment", "Severe"},
	"full-thickness macular":   {"Retinal Detachment", "Severe"},
	"lamellar hole":            {"Retinal Detachment", "Moderate"},

	// Corneal disease
	"corneal disease":      {"Corneal Disease", ""},
	"cornea disease":       {"Corneal Disease", ""},
	"corneal condition":    {"Corneal Disease", ""},
	"keratitis":            {"Corneal Disease", "Moderate"},
	"corneal inflammation": {"Corneal Disease", "Moderate"},
	"infectious keratitis": {"Corneal Disease", "Moderate"},
	"bacterial keratitis":  {"Corneal Disease", "Moderate"},
	"viral keratitis":      {"Corneal Disease", "Moderate"},
	"fungal keratitis":     {"Corneal Disease", "Moderate"},
	"herpes keratitis":     {"Corneal Disease", "Moderate"},
	"ulcerative keratitis": {"Corneal Disease", "Severe"},
	"corneal ulcer":        {"Corneal Disease", "Moderate"},
	"corneal scar":         {"Corneal Disease", "Severe"},
	"corneal scarring":     {"Corneal Disease", "Severe"},
	"stromal scar":         {"Corneal Disease", "Severe"},
	"band keratopathy":     {"Corneal Disease", "Severe"},
	"corneal dystrophy":    {"Corneal Disease", "Mild"},
	"stromal dystrophy":    {"Corneal Disease", "Mild"},
	"endothelial dystrophy": {"Corneal Disease", "Mild"},
	"fuchs dystrophy":      {"Corneal Disease", "Mild"},
	"lattice dystrophy":    {"Corneal Disease", "Mild"},
	"map-dot-fingerprint":  {"Corneal Disease", "Mild"},
	"corneal edema":        {"Corneal Disease", "Moderate"},
	"stromal edema":        {"Corneal Disease", "Moderate"},
	"epithelial edema":     {"Corneal Disease", "Moderate"},
	"keratoconus":          {"Keratoconus", "Moderate"},
	"keratectasia":         {"Keratoconus", "Moderate"},
	"ectasia":              {"Keratoconus", "Moderate"},
	"post-lasik ectasia":   {"Keratoconus", "Moderate"},
	"pterygium":            {"Pterygium", "Mild"},
	"pterygial":            {"Pterygium", "Mild"},
	"pinguecula":           {"Corneal Disease", "Mild"},
	"conjunctival xerosis": {"Corneal Disease", "Mild"},

	// Retinal and optic disease
	"retinoblastoma":         {"Retinoblastoma", "Severe"},
	"retinitis pigmentosa":   {"Retinal Pigmentary Disease", "Moderate"},
	"rp":                     {"Retinal Pigmentary Disease", "Moderate"},
	"pigmentary retinopathy": {"Retinal Pigmentary Disease", "Moderate"},
	"optic neuritis":         {"Optic Disc Disease", "Moderate"},
	"optic neuropathy":       {"Optic Disc Disease", "Moderate"},
	"optic atrophy":          {"Optic Disc Disease", "Severe"},
	"optic pallor":           {"Optic Disc Disease", "Severe"},
	"papilledema":            {"Optic Disc Disease", "Severe"},
	"optic nerve swelling":   {"Optic Disc Disease", "Severe"},
	"swollen optic disc":     {"Optic Disc Disease", "Severe"},
	"optic disc cupping":     {"Optic Disc Disease", "Moderate"},
	"large cup":              {"Optic Disc Disease", "Moderate"},
	"optic nerve hypoplasia": {"Optic Disc Disease", "Moderate"},
	"optic nerve coloboma":   {"Optic Disc Disease", "Moderate"},

	// Vitreous
	"vitreous hemorrhage":           {"Vitreous Hemorrhage", "Severe"},
	"vitreous bleed":                {"Vitreous Hemorrhage", "Severe"},
	"vh":                            {"Vitreous Hemorrhage", "Severe"},
	"hemorrhage vitreous":           {"Vitreous Hemorrhage", "Severe"},
	"vitreous opacities":            {"Vitreous Hemorrhage", "Moderate"},
	"vitreous floaters":             {"Vitreous Hemorrhage", "Mild"},
	"posterior vitreous detachment": {"Vitreous Hemorrhage", "Mild"},
	"pvd":                           {"Vitreous Hemorrhage", "Mild"},
	"vitreous inflammation":         {"Vitreous Hemorrhage", "Moderate"},
	"vitreous haze":                 {"Vitreous Hemorrhage", "Moderate"},

	// Normal
	"normal":        {"Normal", ""},
	"normal eye":    {"Normal", ""},
	"no disease":    {"Normal", ""},
	"healthy":       {"Normal", ""},
	"unremarkable":  {"Normal", ""},
	"no pathology":  {"Normal", ""},
	"normal fundus": {"Normal", ""},
	"clear fundus":  {"Normal", ""},
	"normal ocular": {"Normal", ""},
	"benign":        {"Normal", ""},
}

// diagnosisKeys holds the mapping keys sorted longest first; computed once so
// every normalization call scans in the same deterministic order.
var diagnosisKeys = keysByLengthDesc(diagnosisMapping)

// NormalizeDiagnosis converts raw diagnosis text into a standardized category
// and severity. Keys are matched as substrings of the cleaned input, longest
// key first, so "proliferative diabetic retinopathy" wins over "proliferative".
// Returns ok=false when no keyword matches; the raw text is then preserved by
// the caller rather than guessed at.
func NormalizeDiagnosis(text string) (DiagnosisRule, bool) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return DiagnosisRule{}, false
	}
	for _, key := range diagnosisKeys {
		if strings.Contains(cleaned, key) {
			return diagnosisMapping[key], true
		}
	}
	return DiagnosisRule{}, false
}

// severityGrading holds the per-condition grading scale: numeric grade to label.
// Conditions absent from this table cannot have a severity inferred.
var severityGrading = map[string]map[int]string{
	"diabetic retinopathy": {
		0: "None", 1: "Mild", 2: "Moderate", 3: "Severe", 4: "Proliferative",
	},
	"diabetic macular edema": {
		0: "None", 1: "Mild", 2: "Moderate", 3: "Severe",
	},
	"amd": {
		0: "None", 1: "Early", 2: "Intermediate", 3: "Advanced",
	},
	"cataract": {
		0: "None", 1: "Mild", 2: "Moderate", 3: "Mature", 4: "Hypermature",
	},
	"glaucoma": {
		0: "None", 1: "Mild", 2: "Moderate", 3: "Advanced", 4: "Terminal",
	},
	"corneal disease": {
		0: "None", 1: "Mild", 2: "Moderate", 3: "Severe",
	},
	"retinal detachment": {
		0: "None", 1: "Macula-on", 2: "Macula-off", 3: "Rhegmatogenous", 4: "Tractional",
	},
	"hypertensive retinopathy": {
		0: "None", 1: "Grade 1", 2: "Grade 2", 3: "Grade 3", 4: "Grade 4",
	},
}

// Severity tier keywords checked in fixed order, highest grade first. The order
// is binding: "advanced" appears in both the grade-4 and grade-3 tiers, and the
// grade-4 tier must win.
var severityTiers = []struct {
	grade    int
	keywords []string
}{
	{4, []string{"proliferative", "terminal", "hypermature", "advanced"}},
	{3, []string{"severe", "advanced", "significant", "substantial"}},
	{2, []string{"moderate", "intermediate", "medium"}},
	{1, []string{"mild", "minimal", "early", "slight"}},
	{0, []string{"no ", "without", "negative", "absent", "none"}},
}

// InferSeverity derives a severity label from free diagnosis text, scaled to
// the diagnosed condition's grading table. The condition key is matched
// case-insensitively against the grading table; conditions without a grading
// scale yield no severity. Returns the empty string when undeterminable.
func InferSeverity(diagnosisText, condition string) string {
	grades, ok := severityGrading[strings.ToLower(strings.TrimSpace(condition))]
	if !ok {
		return ""
	}

	lower := strings.ToLower(diagnosisText)
	for _, tier := range severityTiers {
		if containsAny(lower, tier.keywords) {
			return grades[tier.grade]
		}
	}
	return ""
}

// GradingScale returns the grading labels for a condition, keyed by numeric
// grade, or nil when the condition has no defined scale.
func GradingScale(condition string) map[int]string {
	grades, ok := severityGrading[strings.ToLower(strings.TrimSpace(condition))]
	if !ok {
		return nil
	}
	out := make(map[int]string, len(grades))
	for k, v := range grades {
		out[k] = v
	}
	return out
}
