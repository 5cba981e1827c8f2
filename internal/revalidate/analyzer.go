package revalidate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/ensemble"
	"github.com/claimtrust/claimtrust/internal/feature"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// TrustRecomputer refreshes an organization's trust score from its recent
// claim history.
type TrustRecomputer interface {
	Recompute(ctx context.Context, orgID string) error
}

// Analyzer runs the full analysis pipeline for a claim: feature rebuild,
// ensemble rescoring, persistence, audit and notification. It is the unit of
// work dispatched by the scheduler after a revalidation and must tolerate
// at-least-once delivery.
type Analyzer struct {
	store      service.Storage
	builder    *feature.Builder
	scorer     *ensemble.Scorer
	notifier   service.Notifier
	recomputer TrustRecomputer
	retryOpts  service.RetryOptions
	now        func() time.Time
}

// NewAnalyzer wires the full-analysis pipeline. notifier and recomputer may
// be nil; those steps are then skipped.
func NewAnalyzer(
	store service.Storage,
	builder *feature.Builder,
	scorer *ensemble.Scorer,
	notifier service.Notifier,
	recomputer TrustRecomputer,
) *Analyzer {
	return &Analyzer{
		store:      store,
		builder:    builder,
		scorer:     scorer,
		notifier:   notifier,
		recomputer: recomputer,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
		},
		now: time.Now,
	}
}

// Analyze runs one full analysis for the claim. Transient failures are
// retried; on exhaustion the claim is parked in pending_review so it is never
// silently lost.
func (a *Analyzer) Analyze(ctx context.Context, claimID string) error {
	slog.Info("Starting full analysis", "claim_id", claimID)

	claim, err := a.store.GetClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	if claim.Status != model.StatusDraft {
		if err := a.store.SetClaimStatus(ctx, claimID, model.StatusAnalyzing); err != nil {
			slog.Warn("Could not mark claim as analyzing", "claim_id", claimID, "error", err)
		}
	}

	err = common.WithRetry(ctx, func() error {
		return a.run(ctx, claim)
	}, a.retryOpts)
	if err == nil {
		return nil
	}

	slog.Error("Full analysis failed", "claim_id", claimID, "error", err)
	if claim.Status != model.StatusDraft {
		if parkErr := a.store.SetClaimStatus(ctx, claimID, model.StatusPendingReview); parkErr != nil {
			slog.Error("Could not park claim for review", "claim_id", claimID, "error", parkErr)
		}
	}
	return fmt.Errorf("full analysis for claim %s: %w", claimID, err)
}

func (a *Analyzer) run(ctx context.Context, claim *model.Claim) error {
	docs, err := a.store.GetDocumentsByClaim(ctx, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	// Only OCR-complete documents contribute to the full analysis.
	text, ocrData := combineExtracted(docs)

	// The text signal is computed first so document inconsistency feeds the
	// numeric models through the feature vector.
	textScore, _ := a.scorer.TextScore(ctx, text)
	features := a.builder.Build(ctx, claim, ocrData, feature.TextSignals{Inconsistency: textScore})

	result := a.scorer.Analyze(ctx, features, text)
	result.ClaimID = claim.ID
	result.Pipeline = PipelineFullAnalysis

	now := a.now().UTC()
	nextStatus := statusFor(result.Recommendation)
	stage := model.StageComplianceReview
	if result.Recommendation == model.RecommendAutoApprove {
		stage = model.StageAutoApproval
	}
	if claim.Status == model.StatusDraft {
		nextStatus = model.StatusDraft
		stage = model.StagePreSubmission
	}

	claim.Status = nextStatus
	claim.WorkflowStage = stage
	claim.TrustScore = result.TrustScore
	claim.FraudProbability = result.FraudProbability
	claim.AnomalyScore = result.AnomalyScore
	claim.ApprovalLikelihood = result.ApprovalLikelihood
	claim.Recommendation = result.Recommendation
	claim.Confidence = result.Confidence
	claim.AnalyzedAt = now
	claim.Analyzed = true
	claim.Explanation = &model.Explanation{
		LastRevalidatedAt:  now,
		ExplanationText:    result.ExplanationText,
		RiskFactors:        result.RiskFactors,
		WorkflowStage:      stage,
		ReviewerSuggestion: claim.ReviewerSuggestion,
		MatchedPolicies:    claim.MatchedPolicies,
		DetectedRisks:      claim.DetectedRisks,
		ViolationFlags:     claim.ViolationFlags,
	}

	if err := a.store.UpdateClaimScores(ctx, claim); err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}
	if err := a.store.AppendResult(ctx, result); err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}

	if auditErr := a.store.LogEvent(ctx, &service.AuditEvent{
		EventType:    "ai_analysis_completed",
		ResourceType: "claim",
		ResourceID:   claim.ID,
		Data: map[string]any{
			"trust_score":    result.TrustScore,
			"recommendation": string(result.Recommendation),
			"processing_ms":  result.ProcessingTime.Milliseconds(),
		},
	}); auditErr != nil {
		slog.Warn("Audit event not recorded", "claim_id", claim.ID, "error", auditErr)
	}

	if result.TrustScore < alertTrustThreshold && a.notifier != nil {
		if notifyErr := a.notifier.NotifyHighRisk(ctx, claim.ID, result.TrustScore); notifyErr != nil {
			slog.Warn("High-risk notification failed", "claim_id", claim.ID, "error", notifyErr)
		}
	}

	if a.recomputer != nil {
		if recomputeErr := a.recomputer.Recompute(ctx, claim.OrganizationID); recomputeErr != nil {
			slog.Warn("Organization trust recompute failed",
				"org_id", claim.OrganizationID,
				"error", recomputeErr)
		}
	}

	slog.Info("Full analysis complete",
		"claim_id", claim.ID,
		"trust_score", result.TrustScore,
		"recommendation", result.Recommendation)

	return nil
}

// combineExtracted joins OCR text and merges structured data across
// OCR-complete documents, later documents winning on key conflicts.
func combineExtracted(docs []model.Document) (string, map[string]string) {
	var parts []string
	merged := map[string]string{}
	for _, doc := range docs {
		if !doc.OCRExtracted {
			continue
		}
		if doc.OCRText != "" {
			parts = append(parts, doc.OCRText)
		}
		for key, value := range doc.OCRData {
			merged[key] = value
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), merged
}
