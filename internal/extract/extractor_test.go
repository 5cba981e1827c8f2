package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtrust/claimtrust/internal/model"
)

const consistentNote = `
Patient admitted with diagnosis M17.11 and secondary E11.9.
Procedure 27447 performed by Dr. Sarah Chen, NPI: 1234567893.
Treatment was pre-authorized under authorization #AUTH-2026-XK.
`

func TestExtractConsistentDocument(t *testing.T) {
	facts := NewExtractor().Extract(consistentNote)

	assert.Equal(t, []string{"E11.9", "M17.11"}, facts.DiagnosisCodes)
	assert.Equal(t, []string{"27447"}, facts.ProcedureCodes)
	assert.Contains(t, facts.PhysicianIdentifiers, "NPI:1234567893")
	assert.Contains(t, facts.PhysicianIdentifiers, "PROVIDER:Sarah Chen")
	assert.Equal(t, []string{AuthPriorDeclared, AuthReferencePresent}, facts.AuthorizationIndicators)

	assert.ElementsMatch(t, []string{
		model.PolicyDiagnosisProcedureLinked,
		model.PolicyPriorAuthMatched,
		model.PolicyProviderIdentifier,
	}, facts.MatchedPolicies)
	assert.Empty(t, facts.DetectedRisks)
	assert.True(t, facts.Consistent)
	assert.Equal(t, 0.95, facts.Confidence)
	assert.Equal(t, "Extracted 2 diagnosis code(s), 1 procedure code(s), 2 provider identifier(s).", facts.Summary)
}

func TestExtractEmptyText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := NewExtractor().Extract(tt.text)

			assert.Equal(t, []string{model.RiskNoTextAvailable}, facts.DetectedRisks)
			assert.Equal(t, 0.0, facts.Confidence)
			assert.False(t, facts.Consistent)
			assert.Empty(t, facts.DiagnosisCodes)
			assert.Empty(t, facts.ProcedureCodes)
		})
	}
}

func TestExtractMissingAuthorization(t *testing.T) {
	facts := NewExtractor().Extract("Diagnosis M17.11, procedure 27447, seen by Dr. Sarah Chen.")

	assert.Contains(t, facts.DetectedRisks, model.RiskMissingAuthorization)
	assert.NotContains(t, facts.MatchedPolicies, model.PolicyPriorAuthMatched)
	assert.False(t, facts.Consistent)
	assert.Equal(t, 0.72, facts.Confidence)
}

func TestExtractNoBillableCodes(t *testing.T) {
	facts := NewExtractor().Extract("Patient was seen and discharged without incident.")

	assert.Contains(t, facts.DetectedRisks, model.RiskDiagnosisProcedureMismatch)
	assert.Contains(t, facts.DetectedRisks, model.RiskNoBillableCode)
	assert.Contains(t, facts.DetectedRisks, model.RiskMissingAuthorization)
	assert.Contains(t, facts.DetectedRisks, model.RiskMissingProviderIdentifier)
	assert.Equal(t, 0.4, facts.Confidence)
}

func TestExtractDiagnosisOnlyIsMismatch(t *testing.T) {
	facts := NewExtractor().Extract("Working diagnosis E11.9, no procedure scheduled.")

	require.Equal(t, []string{"E11.9"}, facts.DiagnosisCodes)
	assert.Empty(t, facts.ProcedureCodes)
	assert.Contains(t, facts.DetectedRisks, model.RiskDiagnosisProcedureMismatch)
	assert.NotContains(t, facts.DetectedRisks, model.RiskNoBillableCode)
	assert.Equal(t, 0.72, facts.Confidence)
}

func TestExtractNormalizesAndDedupesCodes(t *testing.T) {
	facts := NewExtractor().Extract("codes m17.11 and M17.11 and e11.9; procedures 27447 27447 99213")

	assert.Equal(t, []string{"E11.9", "M17.11"}, facts.DiagnosisCodes)
	assert.Equal(t, []string{"27447", "99213"}, facts.ProcedureCodes)
}

func TestExtractProviderVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"npi with colon", "NPI: 1234567893", "NPI:1234567893"},
		{"provider id", "Provider ID# 9876543210", "NPI:9876543210"},
		{"physician id", "Physician ID 1112223334", "NPI:1112223334"},
		{"dr with period", "seen by Dr. Adam Smith today", "PROVIDER:Adam Smith"},
		{"physician title", "Physician Jones attended", "PROVIDER:Jones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := NewExtractor().Extract(tt.text)
			assert.Contains(t, facts.PhysicianIdentifiers, tt.want)
		})
	}
}

func TestExtractAuthorizationVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"pre-authorized", "Procedure was pre-authorized on intake.", AuthPriorDeclared},
		{"pre authorised", "pre authorised by the payer", AuthPriorDeclared},
		{"prior auth", "prior auth obtained", AuthPriorDeclared},
		{"prior authorization", "prior authorization on file", AuthPriorDeclared},
		{"auth reference", "Authorization #AB-1234 on file", AuthReferencePresent},
		{"auth no", "auth no. XK99213", AuthReferencePresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := NewExtractor().Extract(tt.text)
			assert.Contains(t, facts.AuthorizationIndicators, tt.want)
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	extractor := NewExtractor()
	first := extractor.Extract(consistentNote)
	second := extractor.Extract(consistentNote)

	assert.Equal(t, first, second)
}
