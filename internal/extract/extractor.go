// Package extract derives billing codes, provider identifiers and
// authorization evidence from raw document text. Extraction is a pure
// function of the text and is recomputed on every revalidation.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/claimtrust/claimtrust/internal/model"
)

// Authorization indicator labels.
const (
	AuthPriorDeclared    = "PRIOR_AUTH_DECLARED"
	AuthReferencePresent = "AUTH_REFERENCE_PRESENT"
)

// Extraction confidence levels. Consistent text earns the high level, text
// with codes but failed policy checks the medium one, and code-free text the
// low one.
const (
	confidenceConsistent   = 0.95
	confidenceInconsistent = 0.72
	confidenceNoCodes      = 0.4
)

var (
	// ICD-10 style: letter (not U), two alphanumerics, optional dotted suffix.
	diagnosisPattern = regexp.MustCompile(`(?i)\b[A-TV-Z][0-9][0-9A-Z](?:\.[0-9A-Z]{1,4})?\b`)

	// CPT codes are bare five-digit sequences.
	procedurePattern = regexp.MustCompile(`\b\d{5}\b`)

	npiPattern    = regexp.MustCompile(`(?i)\b(?:NPI|Provider(?:\s+ID)?|Physician\s+ID)[:\s#-]*([0-9]{10})\b`)
	doctorPattern = regexp.MustCompile(`\b(?:Dr\.?|Physician)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)

	priorAuthPattern = regexp.MustCompile(`(?i)\b(pre[-\s]?authori[sz]ed|prior auth(?:orization)?)\b`)
	authRefPattern   = regexp.MustCompile(`(?i)\b(auth(?:orization)?\s*(?:#|no\.?)?\s*[A-Z0-9\-]{4,})\b`)
)

// Extractor scans document text for compliance-relevant facts.
type Extractor struct{}

// NewExtractor creates a fact extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract scans the text and returns the derived facts. Empty text yields the
// fixed no-text result with zero confidence instead of an error.
func (e *Extractor) Extract(text string) *model.ExtractedFacts {
	if strings.TrimSpace(text) == "" {
		return &model.ExtractedFacts{
			DiagnosisCodes:          []string{},
			ProcedureCodes:          []string{},
			PhysicianIdentifiers:    []string{},
			AuthorizationIndicators: []string{},
			MatchedPolicies:         []string{},
			DetectedRisks:           []string{model.RiskNoTextAvailable},
			Summary:                 "No document text available for extraction.",
			Confidence:              0,
			Consistent:              false,
		}
	}

	facts := &model.ExtractedFacts{
		DiagnosisCodes:          extractDiagnosisCodes(text),
		ProcedureCodes:          dedupSorted(procedurePattern.FindAllString(text, -1)),
		PhysicianIdentifiers:    extractPhysicians(text),
		AuthorizationIndicators: extractAuthorization(text),
		MatchedPolicies:         []string{},
		DetectedRisks:           []string{},
	}

	hasDiagnosis := len(facts.DiagnosisCodes) > 0
	hasProcedure := len(facts.ProcedureCodes) > 0

	if hasDiagnosis && hasProcedure {
		facts.MatchedPolicies = append(facts.MatchedPolicies, model.PolicyDiagnosisProcedureLinked)
	} else {
		facts.DetectedRisks = append(facts.DetectedRisks, model.RiskDiagnosisProcedureMismatch)
	}

	if len(facts.AuthorizationIndicators) > 0 {
		facts.MatchedPolicies = append(facts.MatchedPolicies, model.PolicyPriorAuthMatched)
	} else {
		facts.DetectedRisks = append(facts.DetectedRisks, model.RiskMissingAuthorization)
	}

	if len(facts.PhysicianIdentifiers) > 0 {
		facts.MatchedPolicies = append(facts.MatchedPolicies, model.PolicyProviderIdentifier)
	} else {
		facts.DetectedRisks = append(facts.DetectedRisks, model.RiskMissingProviderIdentifier)
	}

	if !hasDiagnosis && !hasProcedure {
		facts.DetectedRisks = append(facts.DetectedRisks, model.RiskNoBillableCode)
	}

	facts.Consistent = len(facts.MatchedPolicies) == 3
	switch {
	case facts.Consistent:
		facts.Confidence = confidenceConsistent
	case hasDiagnosis || hasProcedure:
		facts.Confidence = confidenceInconsistent
	default:
		facts.Confidence = confidenceNoCodes
	}

	facts.Summary = fmt.Sprintf("Extracted %d diagnosis code(s), %d procedure code(s), %d provider identifier(s).",
		len(facts.DiagnosisCodes), len(facts.ProcedureCodes), len(facts.PhysicianIdentifiers))

	return facts
}

func extractDiagnosisCodes(text string) []string {
	matches := diagnosisPattern.FindAllString(text, -1)
	for i, match := range matches {
		matches[i] = strings.ToUpper(match)
	}
	return dedupSorted(matches)
}

func extractPhysicians(text string) []string {
	var identifiers []string
	for _, match := range npiPattern.FindAllStringSubmatch(text, -1) {
		identifiers = append(identifiers, "NPI:"+match[1])
	}
	for _, match := range doctorPattern.FindAllStringSubmatch(text, -1) {
		identifiers = append(identifiers, "PROVIDER:"+match[1])
	}
	return dedupSorted(identifiers)
}

func extractAuthorization(text string) []string {
	indicators := []string{}
	if priorAuthPattern.MatchString(text) {
		indicators = append(indicators, AuthPriorDeclared)
	}
	if authRefPattern.MatchString(text) {
		indicators = append(indicators, AuthReferencePresent)
	}
	return indicators
}

// dedupSorted returns the unique values in sorted order, never nil.
func dedupSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}
	sort.Strings(unique)
	return unique
}
