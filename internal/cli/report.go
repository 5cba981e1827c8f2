package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/claimtrust/claimtrust/internal/model"
)

// recommendationStyle picks a color matching how favorable the outcome is.
func recommendationStyle(rec model.Recommendation) lipgloss.Style {
	switch rec {
	case model.RecommendAutoApprove:
		return SuccessStyle
	case model.RecommendApproveWithReview:
		return InfoStyle
	case model.RecommendComplianceReview:
		return WarningStyle
	case model.RecommendHighRiskHold:
		return ErrorStyle
	default:
		return SubtleStyle
	}
}

func trustStyle(score float64) lipgloss.Style {
	switch {
	case score >= 85:
		return SuccessStyle
	case score >= 60:
		return InfoStyle
	case score >= 40:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

func severityIcon(severity model.Severity) string {
	switch severity {
	case model.SeverityHigh:
		return ErrorStyle.Render(ErrorIcon)
	case model.SeverityMedium:
		return WarningStyle.Render(WarningIcon)
	default:
		return InfoStyle.Render(InfoIcon)
	}
}

func field(label, value string) string {
	return LabelStyle.Render(label) + value
}

// RenderClaimReport renders a full styled report for an analyzed claim.
// Unanalyzed claims get the intake fields only.
func RenderClaimReport(claim *model.Claim) string {
	var lines []string

	lines = append(lines,
		field("Claim", BoldStyle.Render(claim.ClaimNumber)),
		field("Organization", claim.OrganizationID),
		field("Status", string(claim.Status)),
		field("Amount", fmt.Sprintf("$%.2f", claim.ClaimedAmount)),
	)
	if len(claim.DiagnosisCodes) > 0 {
		lines = append(lines, field("Diagnoses", strings.Join(claim.DiagnosisCodes, ", ")))
	}
	if len(claim.ProcedureCodes) > 0 {
		lines = append(lines, field("Procedures", strings.Join(claim.ProcedureCodes, ", ")))
	}
	if claim.SLABreached {
		lines = append(lines, field("SLA", ErrorStyle.Render("BREACHED")))
	}

	if !claim.Analyzed {
		lines = append(lines, "", SubtleStyle.Render("Not yet analyzed."))
		return RenderBox("Claim Report", strings.Join(lines, "\n"))
	}

	lines = append(lines, "",
		field("Trust score", trustStyle(claim.TrustScore).Render(fmt.Sprintf("%.2f / 100", claim.TrustScore))),
		field("Recommendation", recommendationStyle(claim.Recommendation).Render(string(claim.Recommendation))),
		field("Confidence", fmt.Sprintf("%.3f", claim.Confidence)),
		field("Fraud prob.", fmt.Sprintf("%.4f", claim.FraudProbability)),
		field("Anomaly", fmt.Sprintf("%.4f", claim.AnomalyScore)),
		field("Approval", fmt.Sprintf("%.4f", claim.ApprovalLikelihood)),
	)
	if claim.ReviewerSuggestion != "" {
		lines = append(lines, field("Reviewer", claim.ReviewerSuggestion))
	}
	if len(claim.MatchedPolicies) > 0 {
		lines = append(lines, field("Policies", strings.Join(claim.MatchedPolicies, ", ")))
	}
	if len(claim.ViolationFlags) > 0 {
		lines = append(lines, field("Violations", WarningStyle.Render(strings.Join(claim.ViolationFlags, ", "))))
	}

	if claim.Explanation != nil {
		if len(claim.Explanation.RiskFactors) > 0 {
			lines = append(lines, "", SubtitleStyle.UnsetMargins().Render("Risk factors"))
			for _, factor := range claim.Explanation.RiskFactors {
				lines = append(lines, fmt.Sprintf("  %s %s (%+.0f)",
					severityIcon(factor.Severity), factor.Description, factor.Impact))
			}
		}
		if claim.Explanation.ExplanationText != "" {
			lines = append(lines, "", claim.Explanation.ExplanationText)
		}
	}

	return RenderBox("Claim Report", strings.Join(lines, "\n"))
}

// RenderResultHistory renders a compact analysis history table, newest first.
func RenderResultHistory(results []model.EnsembleResult) string {
	if len(results) == 0 {
		return SubtleStyle.Render("No analysis runs recorded.")
	}

	var lines []string
	for _, result := range results {
		lines = append(lines, fmt.Sprintf("%s  %-18s  trust %6.2f  conf %.3f  %s",
			result.CreatedAt.Format("2006-01-02 15:04"),
			result.Pipeline,
			result.TrustScore,
			result.Confidence,
			recommendationStyle(result.Recommendation).Render(string(result.Recommendation))))
	}
	return RenderBox("Analysis History", strings.Join(lines, "\n"))
}
