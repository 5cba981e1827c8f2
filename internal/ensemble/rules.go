package ensemble

import (
	"math"

	"github.com/claimtrust/claimtrust/internal/model"
)

// Rule-based adapters are the deterministic fallbacks used when no learned
// model artifact is available. Each evaluates a fixed heuristic over named
// feature fields.

type ruleFraudAdapter struct{}

func (ruleFraudAdapter) Name() string { return AdapterFraud }

func (ruleFraudAdapter) Score(f model.ClaimFeatures) float64 {
	score := 0.0
	if f.AmountVsOrgAvg > 3.0 {
		score += 0.3
	}
	if f.DuplicateClaim == 1 {
		score += 0.4
	}
	if f.RapidReadmission == 1 {
		score += 0.2
	}
	return clip01(score)
}

type ruleApprovalAdapter struct{}

func (ruleApprovalAdapter) Name() string { return AdapterApproval }

func (ruleApprovalAdapter) Score(f model.ClaimFeatures) float64 {
	score := 0.7
	if f.MissingFields > 2 {
		score -= 0.3
	}
	if f.AmountVsOrgAvg > 2.0 {
		score -= 0.2
	}
	return clip01(score)
}

type ruleStatAnomalyAdapter struct{}

func (ruleStatAnomalyAdapter) Name() string { return AdapterStatAnomaly }

func (ruleStatAnomalyAdapter) Score(f model.ClaimFeatures) float64 {
	score := 0.0
	if f.AmountVsProcedureAvg > 3.0 {
		score += 0.4
	}
	if f.LengthOfStay > 30 {
		score += 0.2
	}
	return clip01(score)
}

// ruleDeepAnomalyAdapter is a self-referential outlier heuristic: the
// fraction of features deviating more than two standard deviations from the
// vector's own mean.
type ruleDeepAnomalyAdapter struct{}

func (ruleDeepAnomalyAdapter) Name() string { return AdapterDeepAnomaly }

func (ruleDeepAnomalyAdapter) Score(f model.ClaimFeatures) float64 {
	vector := f.Vector()

	mean := 0.0
	for _, v := range vector {
		mean += v
	}
	mean /= model.FeatureCount

	variance := 0.0
	for _, v := range vector {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / model.FeatureCount)

	outliers := 0
	for _, v := range vector {
		if math.Abs(v-mean) > 2*std {
			outliers++
		}
	}
	return clip01(float64(outliers) / model.FeatureCount)
}
