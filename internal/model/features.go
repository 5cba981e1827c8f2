package model

// FeatureCount is the fixed width of a claim feature vector.
const FeatureCount = 20

// ClaimFeatures is the fixed-schema numeric record fed to the scoring models.
// Every field is always populated; construction supplies neutral defaults for
// anything that cannot be computed from the inputs.
type ClaimFeatures struct {
	ClaimedAmount          float64
	PatientAge             float64
	LengthOfStay           float64
	ProcedureCount         float64
	DiagnosisCount         float64
	OrgTrustScore          float64
	OrgHistoricalFraudRate float64
	OrgClaimVolume30d      float64
	AmountVsOrgAvg         float64
	AmountVsProcedureAvg   float64
	WeekendAdmission       float64
	HolidayAdmission       float64
	HighValueProcedures    float64
	DuplicateClaim         float64
	RapidReadmission       float64
	// UnusualProviderCombo is reserved for a future graph-based detector and
	// is always zero today.
	UnusualProviderCombo float64
	TextInconsistency    float64
	TextUrgency          float64
	OCRCompleteness      float64
	MissingFields        float64
}

// DefaultFeatures returns a feature record with the documented neutral values.
func DefaultFeatures() ClaimFeatures {
	return ClaimFeatures{
		OrgTrustScore:          50.0,
		OrgHistoricalFraudRate: 0.05,
		AmountVsOrgAvg:         1.0,
		AmountVsProcedureAvg:   1.0,
		OCRCompleteness:        1.0,
	}
}

// Vector flattens the features into the fixed model input layout.
func (f ClaimFeatures) Vector() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.ClaimedAmount,
		f.PatientAge,
		f.LengthOfStay,
		f.ProcedureCount,
		f.DiagnosisCount,
		f.OrgTrustScore,
		f.OrgHistoricalFraudRate,
		f.OrgClaimVolume30d,
		f.AmountVsOrgAvg,
		f.AmountVsProcedureAvg,
		f.WeekendAdmission,
		f.HolidayAdmission,
		f.HighValueProcedures,
		f.DuplicateClaim,
		f.RapidReadmission,
		f.UnusualProviderCombo,
		f.TextInconsistency,
		f.TextUrgency,
		f.OCRCompleteness,
		f.MissingFields,
	}
}

// FeatureNames lists the vector slots in layout order. Keep in sync with Vector.
func FeatureNames() [FeatureCount]string {
	return [FeatureCount]string{
		"claimed_amount",
		"patient_age",
		"length_of_stay",
		"procedure_count",
		"diagnosis_count",
		"org_trust_score",
		"org_fraud_rate",
		"claim_volume_30d",
		"amount_vs_org_avg",
		"amount_vs_procedure_avg",
		"weekend_admission",
		"holiday_admission",
		"high_value_procedures",
		"duplicate_flag",
		"rapid_readmission",
		"unusual_provider_combo",
		"text_inconsistency",
		"text_urgency",
		"ocr_completeness",
		"missing_fields",
	}
}
