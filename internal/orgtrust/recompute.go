// Package orgtrust maintains organization-level trust scores derived from
// recent claim history, and the SLA breach sweep over open claims.
package orgtrust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// historyWindowDays is the trailing claim window feeding the trust formula.
const historyWindowDays = 180

// fraudFlagThreshold marks a claim as fraud-flagged for the organization
// fraud rate.
const fraudFlagThreshold = 0.7

// Score component weights: approval rate 40, inverted fraud rate 30, SLA
// compliance 20, documentation quality 10.
const (
	weightApprovalRate  = 40.0
	weightFraudRate     = 30.0
	weightSLACompliance = 20.0
	weightDocQuality    = 10.0
)

// Recomputer refreshes organization trust scores from claim history.
type Recomputer struct {
	store service.Storage
	now   func() time.Time
}

// NewRecomputer creates a trust score recomputer.
func NewRecomputer(store service.Storage) *Recomputer {
	return &Recomputer{store: store, now: time.Now}
}

// Recompute recalculates the organization's trust score over the trailing
// window, updates the live score and appends a history entry recording the
// contributing factors. Organizations with no recent claims are left
// untouched.
func (r *Recomputer) Recompute(ctx context.Context, orgID string) error {
	since := r.now().UTC().AddDate(0, 0, -historyWindowDays)
	claims, err := r.store.ListClaims(ctx, service.ClaimFilter{OrgID: orgID, Since: &since})
	if err != nil {
		return fmt.Errorf("failed to load claim history for org %s: %w", orgID, err)
	}
	if len(claims) == 0 {
		slog.Info("No recent claims, trust score unchanged", "org_id", orgID)
		return nil
	}

	total := float64(len(claims))
	var approved, fraudFlags, slaBreaches, trustSum float64
	for _, claim := range claims {
		if claim.Status == model.StatusApproved || claim.Status == model.StatusPartiallyApproved {
			approved++
		}
		if claim.FraudProbability > fraudFlagThreshold {
			fraudFlags++
		}
		if claim.SLABreached {
			slaBreaches++
		}
		trust := claim.TrustScore
		if trust == 0 {
			trust = 50
		}
		trustSum += trust
	}

	approvalRate := approved / total
	fraudRate := fraudFlags / total
	slaCompliance := 1.0 - slaBreaches/total
	docQuality := math.Min(1.0, trustSum/total/100)

	newScore := math.Round((approvalRate*weightApprovalRate+
		(1.0-fraudRate)*weightFraudRate+
		slaCompliance*weightSLACompliance+
		docQuality*weightDocQuality)*100) / 100

	oldScore := 50.0
	org, err := r.store.GetOrganization(ctx, orgID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		// keep the default
	case err != nil:
		return fmt.Errorf("failed to load organization %s: %w", orgID, err)
	default:
		oldScore = org.TrustScore
	}

	if err := r.store.UpdateOrganizationTrust(ctx, orgID, newScore); err != nil {
		return fmt.Errorf("failed to update trust for org %s: %w", orgID, err)
	}

	if err := r.store.AppendTrustHistory(ctx, &model.TrustHistoryEntry{
		OrganizationID: orgID,
		Score:          newScore,
		PreviousScore:  oldScore,
		Factors: map[string]float64{
			"approval_rate":     approvalRate,
			"fraud_rate":        fraudRate,
			"sla_compliance":    slaCompliance,
			"doc_quality":       docQuality,
			"claim_sample_size": total,
		},
	}); err != nil {
		return fmt.Errorf("failed to record trust history for org %s: %w", orgID, err)
	}

	slog.Info("Organization trust recomputed",
		"org_id", orgID,
		"previous_score", oldScore,
		"new_score", newScore,
		"claims", len(claims))

	return nil
}
