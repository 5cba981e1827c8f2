package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claimtrust/claimtrust/internal/model"
)

func TestRuleFraudAdapter(t *testing.T) {
	tests := []struct {
		name     string
		features model.ClaimFeatures
		want     float64
	}{
		{"clean claim", model.DefaultFeatures(), 0},
		{
			"high amount ratio",
			func() model.ClaimFeatures {
				f := model.DefaultFeatures()
				f.AmountVsOrgAvg = 3.5
				return f
			}(),
			0.3,
		},
		{
			"duplicate only",
			func() model.ClaimFeatures {
				f := model.DefaultFeatures()
				f.DuplicateClaim = 1
				return f
			}(),
			0.4,
		},
		{
			"all signals stack within range",
			func() model.ClaimFeatures {
				f := model.DefaultFeatures()
				f.AmountVsOrgAvg = 6.15
				f.DuplicateClaim = 1
				f.RapidReadmission = 1
				return f
			}(),
			0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ruleFraudAdapter{}.Score(tt.features), 1e-9)
		})
	}
}

func TestRuleApprovalAdapter(t *testing.T) {
	tests := []struct {
		name     string
		features model.ClaimFeatures
		want     float64
	}{
		{"clean claim", model.DefaultFeatures(), 0.7},
		{
			"missing documentation",
			func() model.ClaimFeatures {
				f := model.DefaultFeatures()
				f.MissingFields = 3
				return f
			}(),
			0.4,
		},
		{
			"exactly two missing fields keeps base",
			func() model.ClaimFeatures {
				f := model.DefaultFeatures()
				f.MissingFields = 2
				return f
			}(),
			0.7,
		},
		{
			"both penalties",
			func() model.ClaimFeatures {
				f := model.DefaultFeatures()
				f.MissingFields = 3
				f.AmountVsOrgAvg = 2.5
				return f
			}(),
			0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ruleApprovalAdapter{}.Score(tt.features), 1e-9)
		})
	}
}

func TestRuleStatAnomalyAdapter(t *testing.T) {
	f := model.DefaultFeatures()
	assert.InDelta(t, 0.0, ruleStatAnomalyAdapter{}.Score(f), 1e-9)

	f.AmountVsProcedureAvg = 3.5
	assert.InDelta(t, 0.4, ruleStatAnomalyAdapter{}.Score(f), 1e-9)

	f.LengthOfStay = 45
	assert.InDelta(t, 0.6, ruleStatAnomalyAdapter{}.Score(f), 1e-9)
}

func TestRuleDeepAnomalyAdapterBounds(t *testing.T) {
	f := model.DefaultFeatures()
	f.ClaimedAmount = 500000
	f.OrgClaimVolume30d = 2000
	score := ruleDeepAnomalyAdapter{}.Score(f)

	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestRuleDeepAnomalyAdapterFlagsExtremeValues(t *testing.T) {
	// One feature vastly larger than the rest must register as an outlier.
	f := model.DefaultFeatures()
	f.ClaimedAmount = 1_000_000
	score := ruleDeepAnomalyAdapter{}.Score(f)

	assert.Greater(t, score, 0.0)
}
