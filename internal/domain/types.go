// Package domain contains the core business entities and closed vocabularies used
// to harmonize heterogeneous ophthalmology datasets into one canonical record schema.
package domain

// Modality represents the imaging modality of a record. The vocabulary is closed:
// harmonization never emits a modality outside this list.
type Modality string

const (
	ModalityFundus             Modality = "Fundus"
	ModalityOCT                Modality = "OCT"
	ModalityOCTA               Modality = "OCTA"
	ModalitySlitLamp           Modality = "Slit-Lamp"
	ModalityFluorescein        Modality = "Fluorescein Angiography"
	ModalityAutofluorescence   Modality = "Fundus Autofluorescence"
	ModalityInfrared           Modality = "Infrared"
	ModalityUltrasound         Modality = "Ultrasound"
	ModalityAnteriorSegment    Modality = "Anterior Segment"
	ModalitySpecularMicroscopy Modality = "Specular Microscopy"
	ModalityVisualField        Modality = "Visual Field"
	ModalityAnteriorSegmentOCT Modality = "Anterior Segment OCT"
)

// IsValid checks if the modality belongs to the closed vocabulary.
func (m Modality) IsValid() bool {
	switch m {
	case ModalityFundus, ModalityOCT, ModalityOCTA, ModalitySlitLamp,
		ModalityFluorescein, ModalityAutofluorescence, ModalityInfrared,
		ModalityUltrasound, ModalityAnteriorSegment, ModalitySpecularMicroscopy,
		ModalityVisualField, ModalityAnteriorSegmentOCT:
		return true
	default:
		return false
	}
}

// String returns the string representation of the modality.
func (m Modality) String() string {
	return string(m)
}

// Laterality identifies which eye an image or measurement pertains to.
// OD = right (oculus dexter), OS = left (oculus sinister), OU = both (oculus uterque).
type Laterality string

const (
	LateralityOD Laterality = "OD"
	LateralityOS Laterality = "OS"
	LateralityOU Laterality = "OU"
)

// IsValid checks if the laterality is one of OD, OS, OU.
func (l Laterality) IsValid() bool {
	switch l {
	case LateralityOD, LateralityOS, LateralityOU:
		return true
	default:
		return false
	}
}

// String returns the laterality code.
func (l Laterality) String() string {
	return string(l)
}

// Sex is the standardized patient sex code.
type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexOther   Sex = "O"
	SexUnknown Sex = "U"
)

// IsValid checks if the sex code is one of M, F, O, U.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexOther, SexUnknown:
		return true
	default:
		return false
	}
}

// String returns the single-character sex code.
func (s Sex) String() string {
	return string(s)
}

// Ethnicity is the standardized patient ethnicity category.
type Ethnicity string

const (
	EthnicityCaucasian       Ethnicity = "Caucasian"
	EthnicityAfrican         Ethnicity = "African"
	EthnicityAsian           Ethnicity = "Asian"
	EthnicityHispanic        Ethnicity = "Hispanic"
	EthnicityMiddleEastern   Ethnicity = "Middle Eastern"
	EthnicityPacificIslander Ethnicity = "Pacific Islander"
	EthnicityMixed           Ethnicity = "Mixed"
	EthnicityOther           Ethnicity = "Other"
)

// IsValid checks if the ethnicity belongs to the eight standard categories.
func (e Ethnicity) IsValid() bool {
	switch e {
	case EthnicityCaucasian, EthnicityAfrican, EthnicityAsian, EthnicityHispanic,
		EthnicityMiddleEastern, EthnicityPacificIslander, EthnicityMixed, EthnicityOther:
		return true
	default:
		return false
	}
}

// String returns the ethnicity category name.
func (e Ethnicity) String() string {
	return string(e)
}

// ImageQuality is the standardized five-level image quality scale.
type ImageQuality string

const (
	QualityExcellent  ImageQuality = "Excellent"
	QualityGood       ImageQuality = "Good"
	QualityModerate   ImageQuality = "Moderate"
	QualityPoor       ImageQuality = "Poor"
	QualityUngradable ImageQuality = "Ungradable"
)

// IsValid checks if the quality level is on the five-level scale.
func (q ImageQuality) IsValid() bool {
	switch q {
	case QualityExcellent, QualityGood, QualityModerate, QualityPoor, QualityUngradable:
		return true
	default:
		return false
	}
}

// String returns the quality level name.
func (q ImageQuality) String() string {
	return string(q)
}

// FieldRole names a canonical schema field that a raw dataset column can map to.
type FieldRole string

const (
	FieldDiagnosis        FieldRole = "diagnosis"
	FieldImageID          FieldRole = "image_id"
	FieldImagePath        FieldRole = "image_path"
	FieldLaterality       FieldRole = "laterality"
	FieldModality         FieldRole = "modality"
	FieldPatientAge       FieldRole = "patient_age"
	FieldPatientSex       FieldRole = "patient_sex"
	FieldResolution       FieldRole = "resolution"
	FieldSeverity         FieldRole = "severity"
	FieldPatientID        FieldRole = "patient_id"
	FieldPatientEthnicity FieldRole = "patient_ethnicity"
	FieldViewType         FieldRole = "view_type"
	FieldClinicalNotes    FieldRole = "clinical_notes"
	FieldImageQuality     FieldRole = "image_quality"
)

// ColumnMapping associates canonical field roles with raw dataset column names.
type ColumnMapping map[FieldRole]string

// MappedColumns returns the set of raw column names consumed by the mapping.
func (m ColumnMapping) MappedColumns() map[string]bool {
	cols := make(map[string]bool, len(m))
	for _, col := range m {
		cols[col] = true
	}
	return cols
}
