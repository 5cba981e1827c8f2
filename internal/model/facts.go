package model

// Policy and risk tags derived from document text.
const (
	PolicyDiagnosisProcedureLinked = "DIAGNOSIS_PROCEDURE_LINKED"
	PolicyPriorAuthMatched         = "PRIOR_AUTH_MATCHED"
	PolicyProviderIdentifier       = "PROVIDER_IDENTIFIER_PRESENT"

	RiskDiagnosisProcedureMismatch = "DIAGNOSIS_PROCEDURE_MISMATCH"
	RiskMissingAuthorization       = "MISSING_AUTHORIZATION"
	RiskMissingProviderIdentifier  = "MISSING_PROVIDER_IDENTIFIER"
	RiskNoBillableCode             = "NO_BILLABLE_CODE_EXTRACTED"
	RiskNoTextAvailable            = "NO_TEXT_AVAILABLE"
)

// ExtractedFacts is the result of scanning document text for billing codes,
// provider identifiers and authorization evidence. It is derived purely from
// text and recomputed on every revalidation; only the latest extraction is
// kept on the claim.
type ExtractedFacts struct {
	DiagnosisCodes          []string `json:"diagnosis_codes"`
	ProcedureCodes          []string `json:"procedure_codes"`
	PhysicianIdentifiers    []string `json:"physician_identifiers"`
	AuthorizationIndicators []string `json:"authorization_indicators"`
	MatchedPolicies         []string `json:"matched_policies"`
	DetectedRisks           []string `json:"detected_risks"`
	Summary                 string   `json:"summary"`
	Confidence              float64  `json:"confidence"`
	Consistent              bool     `json:"is_consistent"`
}

// HasRisk reports whether the extraction flagged the given risk tag.
func (f *ExtractedFacts) HasRisk(tag string) bool {
	for _, risk := range f.DetectedRisks {
		if risk == tag {
			return true
		}
	}
	return false
}
