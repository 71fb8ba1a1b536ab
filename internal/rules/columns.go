package rules

import (
	"strings"

	"github.com/ophtha-harmonizer/internal/domain"
)

// columnRoleGroups lists the keyword groups that identify a column's role.
// Order is binding: a column named "diagnosis_image_type" matches the
// diagnosis group before the image or modality groups ever get a look.
var columnRoleGroups = []struct {
	role     domain.FieldRole
	keywords []string
}{
	{domain.FieldDiagnosis, []string{"diagnosis", "dx", "label", "class", "disease", "condition"}},
	{domain.FieldImageID, []string{"image_id", "image id", "filename", "file", "id"}},
	{domain.FieldImagePath, []string{"path", "img", "image"}},
	{domain.FieldLaterality, []string{"laterality", "eye", "side", "left", "right", "od", "os"}},
	{domain.FieldModality, []string{"modality", "imaging", "type", "technique"}},
	{domain.FieldPatientAge, []string{"age", "patient_age"}},
	{domain.FieldPatientSex, []string{"sex", "gender", "patient_sex"}},
	{domain.FieldResolution, []string{"resolution", "pixel", "dpi", "width", "height"}},
}

// DetectColumnRole guesses which canonical field a raw column represents from
// its name. Returns ok=false when the name matches no keyword group.
func DetectColumnRole(columnName string) (domain.FieldRole, bool) {
	lower := strings.ToLower(columnName)
	for _, group := range columnRoleGroups {
		if containsAny(lower, group.keywords) {
			return group.role, true
		}
	}
	return "", false
}

// MappingConfidence scores how confidently a keyword-detected column maps to a
// field. The heuristic is the ratio of field-name length to column-name
// length, capped at 1.0, so exact names like "diagnosis" score 1.0 and longer
// decorated names score lower. The score is a reproducible report artifact,
// not a probability.
func MappingConfidence(field domain.FieldRole, column string) float64 {
	if len(column) == 0 {
		return 0
	}
	c := float64(len(string(field))) / float64(len(column))
	if c > 1.0 {
		return 1.0
	}
	return c
}

// DetectMapping scans a column list and assigns each canonical field the first
// column that matches it, preserving the source column order. Columns whose
// role is already claimed keep their data available through extra_json.
func DetectMapping(columns []string) (domain.ColumnMapping, []domain.MappingEntry) {
	mapping := make(domain.ColumnMapping)
	var entries []domain.MappingEntry

	for _, col := range columns {
		role, ok := DetectColumnRole(col)
		if !ok {
			continue
		}
		if _, claimed := mapping[role]; claimed {
			continue
		}
		mapping[role] = col
		entries = append(entries, domain.MappingEntry{
			Field:      role,
			Column:     col,
			Confidence: MappingConfidence(role, col),
		})
	}
	return mapping, entries
}
