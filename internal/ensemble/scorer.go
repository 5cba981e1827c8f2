package ensemble

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/nlp"
)

// ModelVersion tags every result produced by this scorer.
const ModelVersion = "ensemble-v1.0"

// Signal weights. Fixed, sum to 1.0. Fraud and anomaly signals are inverted
// before weighting so that higher fraud/anomaly means lower trust.
const (
	weightFraud       = 0.30
	weightApproval    = 0.25
	weightStatAnomaly = 0.20
	weightDeepAnomaly = 0.15
	weightText        = 0.10
)

// Recommendation thresholds on the trust score. Each band includes its lower
// bound.
const (
	autoApproveThreshold      = 85.0
	reviewApproveThreshold    = 60.0
	complianceReviewThreshold = 40.0
)

// Scorer runs the five-signal ensemble over a feature vector and combined
// document text. Safe for concurrent use; model artifacts are loaded at most
// once per Scorer.
type Scorer struct {
	loader *loader
	text   *textAnalyzer
}

// NewScorer creates a scorer. modelDir may be empty to force rule-based
// scoring; extractor may be nil to use the built-in pattern pass.
func NewScorer(modelDir string, extractor nlp.EntityExtractor) *Scorer {
	return &Scorer{
		loader: newLoader(modelDir),
		text:   newTextAnalyzer(extractor),
	}
}

// Analyze scores one claim and returns the complete explainability record.
// The caller owns the ClaimID and Pipeline fields of the result.
func (s *Scorer) Analyze(ctx context.Context, features model.ClaimFeatures, text string) *model.EnsembleResult {
	start := time.Now()
	set := s.loader.adapters()

	// The four numeric signals are independent; score them concurrently.
	var wg sync.WaitGroup
	var fraud, approval, statAn, deepAn float64
	score := func(adapter Adapter, out *float64) {
		defer wg.Done()
		*out = clip01(adapter.Score(features))
	}
	wg.Add(4)
	go score(set.fraud, &fraud)
	go score(set.approval, &approval)
	go score(set.statAnomaly, &statAn)
	go score(set.deepAnomaly, &deepAn)
	wg.Wait()

	textScore, entities := s.text.analyze(ctx, text)

	trust := trustScore(fraud, approval, statAn, deepAn, textScore)
	recommendation := recommend(trust)
	confidence := confidenceFrom([]float64{fraud, approval, statAn, deepAn})
	factors := buildRiskFactors(features, fraud, statAn)
	explanation := buildExplanation(trust, factors, recommendation)

	return &model.EnsembleResult{
		TrustScore:         trust,
		FraudProbability:   round4(fraud),
		AnomalyScore:       round4((statAn + deepAn) / 2),
		ApprovalLikelihood: round4(approval),
		Recommendation:     recommendation,
		Confidence:         confidence,

		FraudScore:           round4(fraud),
		ApprovalScore:        round4(approval),
		StatAnomalyScore:     round4(statAn),
		DeepAnomalyScore:     round4(deepAn),
		TextConsistencyScore: round4(textScore),

		Entities:           entities,
		FeatureImportances: featureImportances(features),
		RiskFactors:        factors,
		ExplanationText:    explanation,
		ModelVersion:       ModelVersion,
		ProcessingTime:     time.Since(start),
	}
}

// TextScore runs only the document-consistency signal, returning the
// inconsistency score and the extracted entities. Used by callers that feed
// the score back into the feature vector before a full Analyze.
func (s *Scorer) TextScore(ctx context.Context, text string) (float64, map[string][]string) {
	return s.text.analyze(ctx, text)
}

// trustScore combines the five signals into a 0-100 score, rounded to two
// decimals.
func trustScore(fraud, approval, statAn, deepAn, textScore float64) float64 {
	trust := weightFraud*(1.0-fraud) +
		weightApproval*approval +
		weightStatAnomaly*(1.0-statAn) +
		weightDeepAnomaly*(1.0-deepAn) +
		weightText*(1.0-textScore)

	trust *= 100
	if trust < 0 {
		trust = 0
	}
	if trust > 100 {
		trust = 100
	}
	return round2(trust)
}

func recommend(trust float64) model.Recommendation {
	switch {
	case trust >= autoApproveThreshold:
		return model.RecommendAutoApprove
	case trust >= reviewApproveThreshold:
		return model.RecommendApproveWithReview
	case trust >= complianceReviewThreshold:
		return model.RecommendComplianceReview
	default:
		return model.RecommendHighRiskHold
	}
}

// confidenceFrom derives confidence from the disagreement between the four
// numeric model scores. Low variance means high confidence, floored at 0.1.
func confidenceFrom(scores []float64) float64 {
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))

	confidence := 1.0 - math.Min(variance*4, 0.9)
	if confidence < 0.1 {
		confidence = 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return round3(confidence)
}

// buildRiskFactors evaluates the fixed checklist against the feature vector
// and model outputs, returning the list sorted most severe first.
func buildRiskFactors(f model.ClaimFeatures, fraudScore, statAnomalyScore float64) model.RiskFactors {
	var factors model.RiskFactors

	if f.DuplicateClaim == 1 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityHigh,
			Description: "Potential duplicate claim detected",
			Impact:      -25,
		})
	}
	if f.RapidReadmission == 1 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityMedium,
			Description: "Rapid readmission within 30 days",
			Impact:      -15,
		})
	}
	if f.AmountVsOrgAvg > 2.5 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityMedium,
			Description: fmt.Sprintf("Claimed amount %.1fx above org average", f.AmountVsOrgAvg),
			Impact:      -10,
		})
	}
	if f.MissingFields > 0 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityMedium,
			Description: fmt.Sprintf("%d required documentation fields missing", int(f.MissingFields)),
			Impact:      -8,
		})
	}
	if f.OrgHistoricalFraudRate > 0.10 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityHigh,
			Description: "Organization has elevated historical fraud rate",
			Impact:      -20,
		})
	}
	if fraudScore > 0.7 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityHigh,
			Description: "Fraud model flags high fraud probability",
			Impact:      -30,
		})
	}
	if statAnomalyScore > 0.65 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityMedium,
			Description: "Billing pattern is a statistical anomaly",
			Impact:      -12,
		})
	}

	if f.OrgTrustScore > 80 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityInfo,
			Description: "High-trust organization on record",
			Impact:      15,
		})
	}
	if f.OCRCompleteness > 0.95 {
		factors = append(factors, model.RiskFactor{
			Severity:    model.SeverityInfo,
			Description: "Documents are complete and well-structured",
			Impact:      5,
		})
	}

	factors.Sort()
	return factors
}

func buildExplanation(trust float64, factors model.RiskFactors, recommendation model.Recommendation) string {
	concerns := factors.TopConcerns(3)
	if len(concerns) == 0 {
		return fmt.Sprintf("Claim trust score: %v/100. No significant risk factors identified. Recommendation: %s.",
			trust, recommendation)
	}

	joined := concerns[0]
	for _, concern := range concerns[1:] {
		joined += "; " + concern
	}
	return fmt.Sprintf("Claim trust score: %v/100. Key concerns: %s. Recommendation: %s.",
		trust, joined, recommendation)
}

// featureImportances is a simplified magnitude-based attribution over the
// named feature vector.
func featureImportances(f model.ClaimFeatures) map[string]float64 {
	vector := f.Vector()
	names := model.FeatureNames()

	importances := make(map[string]float64, model.FeatureCount)
	for i, name := range names {
		importances[name] = math.Abs(vector[i]) * 0.05
	}
	return importances
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
