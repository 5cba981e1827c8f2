package revalidate

import (
	"context"
	"log/slog"
)

// LogNotifier delivers administrator alerts to the structured log. Deployments
// with a real alerting channel substitute their own service.Notifier.
type LogNotifier struct{}

// NotifyHighRisk records an alert for a claim scoring below the trust
// threshold.
func (LogNotifier) NotifyHighRisk(_ context.Context, claimID string, trustScore float64) error {
	slog.Warn("ALERT: high-risk claim requires attention",
		"claim_id", claimID,
		"trust_score", trustScore)
	return nil
}

// NotifySLABreach records an alert for a claim past its SLA deadline.
func (LogNotifier) NotifySLABreach(_ context.Context, claimID string) error {
	slog.Warn("ALERT: claim SLA deadline breached", "claim_id", claimID)
	return nil
}
