package model

import (
	"sort"
	"time"
)

// Severity grades a risk factor for reviewers.
type Severity string

// Severity constants.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityInfo   Severity = "info"
)

// RiskFactor is one human-readable signal contributing to a trust score.
// Impact is a signed point value; negative impacts are concerns.
type RiskFactor struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"factor"`
	Impact      float64  `json:"impact"`
}

// RiskFactors is an ordered list of risk factors.
type RiskFactors []RiskFactor

// Sort orders factors ascending by impact so the most severe concerns come
// first. Ties keep their checklist order.
func (r RiskFactors) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Impact < r[j].Impact
	})
}

// TopConcerns returns the descriptions of up to n negative-impact factors,
// assuming the list is already sorted.
func (r RiskFactors) TopConcerns(n int) []string {
	concerns := make([]string, 0, n)
	for _, factor := range r {
		if len(concerns) == n {
			break
		}
		if factor.Impact < 0 {
			concerns = append(concerns, factor.Description)
		}
	}
	return concerns
}

// EnsembleResult is the complete output of one scoring run. Results are
// constructed once, persisted, and never mutated; repeated runs append new
// records forming a history per claim.
type EnsembleResult struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	ClaimID   string    `json:"claim_id"`

	TrustScore         float64        `json:"trust_score"`
	FraudProbability   float64        `json:"fraud_probability"`
	AnomalyScore       float64        `json:"anomaly_score"`
	ApprovalLikelihood float64        `json:"approval_likelihood"`
	Recommendation     Recommendation `json:"recommendation"`
	Confidence         float64        `json:"confidence"`

	// Raw per-model scores, all in [0,1].
	FraudScore           float64 `json:"fraud_score"`
	ApprovalScore        float64 `json:"approval_score"`
	StatAnomalyScore     float64 `json:"stat_anomaly_score"`
	DeepAnomalyScore     float64 `json:"deep_anomaly_score"`
	TextConsistencyScore float64 `json:"text_consistency_score"`

	Entities           map[string][]string `json:"entities"`
	FeatureImportances map[string]float64  `json:"feature_importances"`
	RiskFactors        RiskFactors         `json:"risk_factors"`
	ExplanationText    string              `json:"explanation_text"`
	ModelVersion       string              `json:"model_version"`
	Pipeline           string              `json:"pipeline"`
	ProcessingTime     time.Duration       `json:"processing_time"`
}
