package model

import "time"

// Organization is a claim-submitting provider organization.
type Organization struct {
	CreatedAt  time.Time
	ID         string
	Name       string
	TrustScore float64
}

// OrgStats is the read-only statistical snapshot of an organization consumed
// by feature construction. Unknown organizations get the documented defaults.
type OrgStats struct {
	TrustScore          float64
	ClaimVolume30d      int
	AvgClaimAmount      float64
	HistoricalFraudRate float64
}

// DefaultOrgStats returns the neutral snapshot used when an organization is
// unknown or its statistics cannot be fetched.
func DefaultOrgStats() OrgStats {
	return OrgStats{
		TrustScore:          50.0,
		ClaimVolume30d:      0,
		AvgClaimAmount:      0,
		HistoricalFraudRate: 0.05,
	}
}

// TrustHistoryEntry is one append-only record of an organization trust score
// recomputation.
type TrustHistoryEntry struct {
	CreatedAt      time.Time          `json:"created_at"`
	OrganizationID string             `json:"organization_id"`
	Factors        map[string]float64 `json:"factors"`
	Score          float64            `json:"score"`
	PreviousScore  float64            `json:"previous_score"`
}
