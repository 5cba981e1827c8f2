// Package ensemble combines five independent scoring signals into one 0-100
// trust score with full explainability output for human reviewers.
package ensemble

import "github.com/claimtrust/claimtrust/internal/model"

// Adapter is one numeric scoring signal. Score always returns a value in
// [0,1] and never fails; adapters with unreliable backends must be wrapped so
// a deterministic value is produced for every input.
type Adapter interface {
	Name() string
	Score(features model.ClaimFeatures) float64
}

// Adapter names, used in logs and artifact file names.
const (
	AdapterFraud       = "fraud"
	AdapterApproval    = "approval"
	AdapterStatAnomaly = "stat_anomaly"
	AdapterDeepAnomaly = "deep_anomaly"
)

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
