// Package revalidate sequences the trust-scoring pipeline into workflow
// decisions: the synchronous revalidation cycle triggered by document arrival
// and the full asynchronous analysis that follows it.
package revalidate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/ensemble"
	"github.com/claimtrust/claimtrust/internal/extract"
	"github.com/claimtrust/claimtrust/internal/feature"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// Pipeline tags recorded on scoring results.
const (
	PipelineRevalidation = "upload_revalidation"
	PipelineFullAnalysis = "full_analysis"
)

// alertTrustThreshold is the trust score below which administrators are
// notified.
const alertTrustThreshold = 40.0

// followUpDelay is the delay hint for the full analysis scheduled after a
// synchronous revalidation.
const followUpDelay = 2 * time.Second

// Reviewer guidance, chosen by priority in reviewerSuggestion.
const (
	suggestionMissingAuth  = "Authorization evidence missing. Request prior authorization document before approval."
	suggestionAutoApprove  = "Low-risk claim profile. Approve unless manual discrepancy is identified."
	suggestionHighRisk     = "High-risk hold recommended. Escalate to compliance specialist for manual review."
	suggestionTargetedScan = "Proceed with targeted compliance review on extracted risk indicators."
)

// Outcome is the consolidated result of one revalidation cycle.
type Outcome struct {
	ClaimID              string                `json:"claim_id"`
	DocumentID           string                `json:"document_id,omitempty"`
	ClaimStatus          model.ClaimStatus     `json:"claim_status"`
	WorkflowStage        model.WorkflowStage   `json:"workflow_stage"`
	Recommendation       model.Recommendation  `json:"recommendation"`
	ReviewerSuggestion   string                `json:"reviewer_suggestion"`
	Facts                *model.ExtractedFacts `json:"extracted_facts"`
	ViolationFlags       []string              `json:"violation_flags"`
	TrustScore           float64               `json:"trust_score"`
	Confidence           float64               `json:"confidence"`
	AutoApprovalEligible bool                  `json:"auto_approval_eligible"`
}

// Orchestrator runs the end-to-end revalidation cycle for one claim.
type Orchestrator struct {
	store     service.Storage
	builder   *feature.Builder
	extractor *extract.Extractor
	scorer    *ensemble.Scorer
	notifier  service.Notifier
	scheduler service.Scheduler
	retryOpts service.RetryOptions
	now       func() time.Time
}

// NewOrchestrator wires the pipeline components together. notifier and
// scheduler may be nil; those steps are then skipped.
func NewOrchestrator(
	store service.Storage,
	builder *feature.Builder,
	extractor *extract.Extractor,
	scorer *ensemble.Scorer,
	notifier service.Notifier,
	scheduler service.Scheduler,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		builder:   builder,
		extractor: extractor,
		scorer:    scorer,
		notifier:  notifier,
		scheduler: scheduler,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		now: time.Now,
	}
}

// Revalidate recomputes the claim's trust fields and workflow decision from
// its current documents. Safe to invoke repeatedly for the same claim and
// document; each run performs a latest-wins update plus one appended result.
func (o *Orchestrator) Revalidate(ctx context.Context, claimID, documentID string) (*Outcome, error) {
	slog.Info("Starting revalidation cycle", "claim_id", claimID, "document_id", documentID)

	claim, err := o.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	docs, err := o.store.GetDocumentsByClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents for claim %s: %w", claimID, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("claim %s: %w", claimID, common.ErrNoDocuments)
	}

	combinedText, ocrData := combineDocuments(docs)
	facts := o.extractor.Extract(combinedText)
	slog.Info("Facts extracted", "claim_id", claimID, "summary", facts.Summary)

	features := o.builder.Build(ctx, claim, ocrData, feature.TextSignals{})
	result := o.scorer.Analyze(ctx, features, combinedText)
	result.ClaimID = claimID
	result.Pipeline = PipelineRevalidation

	decision := decide(claim.Status, result, facts)
	now := o.now().UTC()

	applyDecision(claim, result, facts, decision, documentID, now)

	if err := o.persist(ctx, claim, result); err != nil {
		return nil, err
	}

	o.audit(ctx, claimID, &service.AuditEvent{
		EventType:    "ai_analysis_completed",
		ResourceType: "claim",
		ResourceID:   claimID,
		Data: map[string]any{
			"trigger":                "document_upload_revalidation",
			"document_id":            documentID,
			"recommendation":         string(result.Recommendation),
			"confidence":             result.Confidence,
			"auto_approval_eligible": decision.autoApprovalEligible,
			"workflow_stage":         string(decision.stage),
		},
	})

	if result.TrustScore < alertTrustThreshold && o.notifier != nil {
		if notifyErr := o.notifier.NotifyHighRisk(ctx, claimID, result.TrustScore); notifyErr != nil {
			slog.Warn("High-risk notification failed", "claim_id", claimID, "error", notifyErr)
		}
	}

	if o.scheduler != nil {
		if schedErr := o.scheduler.ScheduleAnalysis(ctx, claimID, followUpDelay); schedErr != nil {
			slog.Warn("Could not queue follow-up analysis", "claim_id", claimID, "error", schedErr)
		}
	}

	slog.Info("Revalidation complete",
		"claim_id", claimID,
		"trust_score", result.TrustScore,
		"recommendation", result.Recommendation,
		"status", decision.status)

	return &Outcome{
		ClaimID:              claimID,
		DocumentID:           documentID,
		ClaimStatus:          decision.status,
		WorkflowStage:        decision.stage,
		Recommendation:       result.Recommendation,
		ReviewerSuggestion:   decision.suggestion,
		Facts:                facts,
		ViolationFlags:       decision.violations,
		TrustScore:           result.TrustScore,
		Confidence:           result.Confidence,
		AutoApprovalEligible: decision.autoApprovalEligible,
	}, nil
}

// decision holds the workflow routing derived from one scoring run.
type decision struct {
	status               model.ClaimStatus
	stage                model.WorkflowStage
	suggestion           string
	violations           []string
	autoApprovalEligible bool
}

// decide maps the ensemble output and extracted facts onto the claim
// workflow. Draft claims never progress: their status is preserved and the
// stage is forced to pre-submission.
func decide(current model.ClaimStatus, result *model.EnsembleResult, facts *model.ExtractedFacts) decision {
	d := decision{
		status:     statusFor(result.Recommendation),
		stage:      model.StageComplianceReview,
		violations: violationFlags(facts, result.RiskFactors),
	}
	if result.Recommendation == model.RecommendAutoApprove {
		d.stage = model.StageAutoApproval
	}

	// Missing compliance evidence always overrides a favorable score.
	d.autoApprovalEligible = result.Recommendation == model.RecommendAutoApprove &&
		!facts.HasRisk(model.RiskMissingAuthorization) &&
		!facts.HasRisk(model.RiskMissingProviderIdentifier)

	d.suggestion = reviewerSuggestion(result.Recommendation, facts)

	if current == model.StatusDraft {
		d.status = model.StatusDraft
		d.stage = model.StagePreSubmission
	}

	return d
}

func statusFor(recommendation model.Recommendation) model.ClaimStatus {
	switch recommendation {
	case model.RecommendAutoApprove, model.RecommendApproveWithReview:
		return model.StatusPendingReview
	case model.RecommendComplianceReview, model.RecommendHighRiskHold:
		return model.StatusComplianceReview
	default:
		return model.StatusPendingReview
	}
}

// reviewerSuggestion picks guidance by priority: missing authorization
// outranks a favorable recommendation.
func reviewerSuggestion(recommendation model.Recommendation, facts *model.ExtractedFacts) string {
	switch {
	case facts.HasRisk(model.RiskMissingAuthorization):
		return suggestionMissingAuth
	case recommendation == model.RecommendAutoApprove:
		return suggestionAutoApprove
	case recommendation == model.RecommendHighRiskHold:
		return suggestionHighRisk
	default:
		return suggestionTargetedScan
	}
}

// violationFlags merges extracted risk tags with the negative risk factors,
// upper-snake-cased, deduplicated and sorted.
func violationFlags(facts *model.ExtractedFacts, factors model.RiskFactors) []string {
	flags := map[string]struct{}{}
	for _, risk := range facts.DetectedRisks {
		flags[risk] = struct{}{}
	}
	for _, factor := range factors {
		if factor.Impact < 0 {
			tag := strings.ToUpper(strings.ReplaceAll(factor.Description, " ", "_"))
			flags[tag] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(flags))
	for flag := range flags {
		sorted = append(sorted, flag)
	}
	sort.Strings(sorted)
	return sorted
}

// applyDecision writes the scoring output and workflow decision onto the
// claim record (latest wins).
func applyDecision(claim *model.Claim, result *model.EnsembleResult, facts *model.ExtractedFacts, d decision, documentID string, now time.Time) {
	if len(facts.DiagnosisCodes) > 0 {
		claim.DiagnosisCodes = facts.DiagnosisCodes
	}
	if len(facts.ProcedureCodes) > 0 {
		claim.ProcedureCodes = facts.ProcedureCodes
	}

	claim.Status = d.status
	claim.WorkflowStage = d.stage
	claim.TrustScore = result.TrustScore
	claim.FraudProbability = result.FraudProbability
	claim.AnomalyScore = result.AnomalyScore
	claim.ApprovalLikelihood = result.ApprovalLikelihood
	claim.Recommendation = result.Recommendation
	claim.Confidence = result.Confidence
	claim.AnalyzedAt = now
	claim.Analyzed = true
	claim.MatchedPolicies = facts.MatchedPolicies
	claim.DetectedRisks = facts.DetectedRisks
	claim.ViolationFlags = d.violations
	claim.ReviewerSuggestion = d.suggestion
	claim.AutoApprovalEligible = d.autoApprovalEligible
	claim.Explanation = &model.Explanation{
		LastRevalidatedAt:    now,
		ExtractedFacts:       facts,
		ExplanationText:      result.ExplanationText,
		ReviewerSuggestion:   d.suggestion,
		WorkflowStage:        d.stage,
		SourceDocumentID:     documentID,
		MatchedPolicies:      facts.MatchedPolicies,
		DetectedRisks:        facts.DetectedRisks,
		ViolationFlags:       d.violations,
		RiskFactors:          result.RiskFactors,
		AutoApprovalEligible: d.autoApprovalEligible,
	}
}

// persist writes the claim update and appends the result record, retrying
// transient failures. On exhaustion the claim is parked in pending_review so
// it stays visible to reviewers.
func (o *Orchestrator) persist(ctx context.Context, claim *model.Claim, result *model.EnsembleResult) error {
	err := common.WithRetry(ctx, func() error {
		if updateErr := o.store.UpdateClaimScores(ctx, claim); updateErr != nil {
			return updateErr
		}
		return o.store.AppendResult(ctx, result)
	}, o.retryOpts)
	if err == nil {
		return nil
	}

	slog.Error("Could not persist revalidation outcome", "claim_id", claim.ID, "error", err)
	if parkErr := o.store.SetClaimStatus(ctx, claim.ID, model.StatusPendingReview); parkErr != nil {
		slog.Error("Could not park claim for review", "claim_id", claim.ID, "error", parkErr)
	}
	return fmt.Errorf("failed to persist revalidation for claim %s: %w", claim.ID, err)
}

func (o *Orchestrator) audit(ctx context.Context, claimID string, event *service.AuditEvent) {
	if err := o.store.LogEvent(ctx, event); err != nil {
		slog.Warn("Audit event not recorded", "claim_id", claimID, "error", err)
	}
}

// combineDocuments joins OCR text across documents in creation order and
// merges their structured data, later documents winning on key conflicts.
func combineDocuments(docs []model.Document) (string, map[string]string) {
	var parts []string
	merged := map[string]string{}
	for _, doc := range docs {
		if doc.OCRText != "" {
			parts = append(parts, doc.OCRText)
		}
		for key, value := range doc.OCRData {
			merged[key] = value
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), merged
}
